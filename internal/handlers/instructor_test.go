package handlers_test

import (
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coursehub/internal/models"
)

func TestCreateCourseRequiresExistingCategory(t *testing.T) {
	env := newTestEnv(t)
	instructor := createUser(t, "teach@example.com", "supersecret", true)
	cookies := sessionCookieFor(t, instructor)

	resp, _ := env.request(t, "POST", "/api/instructor/courses/create",
		`{"title":"Go from Scratch","category":"Nonexistent","price":49}`, cookies)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	createCategory(t, "Programming")
	resp, payload := env.request(t, "POST", "/api/instructor/courses/create",
		`{"title":"Go from Scratch","category":"Programming","price":49}`, cookies)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	data := payload["data"].(map[string]interface{})
	assert.Equal(t, false, data["published"])
	assert.EqualValues(t, 0, data["duration"])
	assert.EqualValues(t, 49, data["originalPrice"])
}

func TestCreateCategoryRejectsDuplicate(t *testing.T) {
	env := newTestEnv(t)
	instructor := createUser(t, "teach@example.com", "supersecret", true)
	cookies := sessionCookieFor(t, instructor)

	resp, _ := env.request(t, "POST", "/api/instructor/create-category",
		`{"name":"Programming"}`, cookies)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, _ = env.request(t, "POST", "/api/instructor/create-category",
		`{"name":"Programming"}`, cookies)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateSectionAssignsOrderAppendAtEnd(t *testing.T) {
	env := newTestEnv(t)
	instructor := createUser(t, "teach@example.com", "supersecret", true)
	category := createCategory(t, "Programming")
	course := createCourse(t, instructor, category)
	cookies := sessionCookieFor(t, instructor)

	path := fmt.Sprintf("/api/instructor/courses/%s/sections/create", course.ID)

	resp, payload := env.request(t, "POST", path, `{"title":"Basics"}`, cookies)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	first := payload["data"].(map[string]interface{})
	assert.EqualValues(t, 1, first["order"])

	resp, payload = env.request(t, "POST", path, `{"title":"Advanced"}`, cookies)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	second := payload["data"].(map[string]interface{})
	assert.EqualValues(t, 2, second["order"])
}

func TestAddLessonBumpsAggregateDurations(t *testing.T) {
	env := newTestEnv(t)
	instructor := createUser(t, "teach@example.com", "supersecret", true)
	category := createCategory(t, "Programming")
	course := createCourse(t, instructor, category)
	section := createSection(t, course, "Basics")
	cookies := sessionCookieFor(t, instructor)

	path := fmt.Sprintf("/api/instructor/courses/%s/sections/%s/lessons/create", course.ID, section.ID)

	resp, _ := env.request(t, "POST", path, `{"title":"Hello","duration":300}`, cookies)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, _ = env.request(t, "POST", path, `{"title":"Types","duration":120}`, cookies)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	assert.Equal(t, 420, reloadSection(t, section.ID).Duration)
	assert.Equal(t, 420, reloadCourse(t, course.ID).Duration)
}

func TestDeleteLessonRestoresDurationsAndCleansVideo(t *testing.T) {
	env := newTestEnv(t)
	instructor := createUser(t, "teach@example.com", "supersecret", true)
	category := createCategory(t, "Programming")
	course := createCourse(t, instructor, category)
	section := createSection(t, course, "Basics")
	kept := createLesson(t, section, "Hello", 300, "")
	doomed := createLesson(t, section, "Types", 120, "video-a")
	cookies := sessionCookieFor(t, instructor)

	path := fmt.Sprintf("/api/instructor/courses/%s/sections/%s/lessons/%s/delete",
		course.ID, section.ID, doomed.ID)
	resp, _ := env.request(t, "DELETE", path, "", cookies)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, 300, reloadSection(t, section.ID).Duration)
	assert.Equal(t, 300, reloadCourse(t, course.ID).Duration)
	assert.Equal(t, []string{"video-a"}, env.media.deleted)

	var count int64
	require.NoError(t, testDB.Model(&models.Lesson{}).Where("id = ?", kept.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDeleteSectionRemovesLessonsAndDecrementsCourse(t *testing.T) {
	env := newTestEnv(t)
	instructor := createUser(t, "teach@example.com", "supersecret", true)
	category := createCategory(t, "Programming")
	course := createCourse(t, instructor, category)
	doomed := createSection(t, course, "Basics")
	createLesson(t, doomed, "Hello", 300, "video-a")
	createLesson(t, doomed, "Types", 120, "video-b")
	survivor := createSection(t, course, "Advanced")
	createLesson(t, survivor, "Generics", 200, "")
	cookies := sessionCookieFor(t, instructor)

	path := fmt.Sprintf("/api/instructor/courses/%s/sections/%s/delete", course.ID, doomed.ID)
	resp, _ := env.request(t, "DELETE", path, "", cookies)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var count int64
	require.NoError(t, testDB.Model(&models.Lesson{}).Where("section_id = ?", doomed.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)
	require.NoError(t, testDB.Model(&models.Section{}).Where("id = ?", doomed.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	// Only the deleted section's lessons leave the course aggregate.
	assert.Equal(t, 200, reloadCourse(t, course.ID).Duration)

	require.Len(t, env.media.bulks, 1)
	assert.ElementsMatch(t, []string{"video-a", "video-b"}, env.media.bulks[0])
}

func TestSectionOrderSwapIsItsOwnInverse(t *testing.T) {
	env := newTestEnv(t)
	instructor := createUser(t, "teach@example.com", "supersecret", true)
	category := createCategory(t, "Programming")
	course := createCourse(t, instructor, category)
	a := createSection(t, course, "Basics")
	b := createSection(t, course, "Advanced")
	cookies := sessionCookieFor(t, instructor)

	require.Equal(t, 1, reloadSection(t, a.ID).Order)
	require.Equal(t, 2, reloadSection(t, b.ID).Order)

	path := fmt.Sprintf("/api/instructor/courses/%s/sections/order/update", course.ID)
	body := fmt.Sprintf(`{"section1":{"id":%q},"section2":{"id":%q}}`, a.ID, b.ID)

	resp, _ := env.request(t, "PATCH", path, body, cookies)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, reloadSection(t, a.ID).Order)
	assert.Equal(t, 1, reloadSection(t, b.ID).Order)

	resp, _ = env.request(t, "PATCH", path, body, cookies)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, reloadSection(t, a.ID).Order)
	assert.Equal(t, 2, reloadSection(t, b.ID).Order)
}

func TestSectionOrderSwapRejectsForeignSection(t *testing.T) {
	env := newTestEnv(t)
	instructor := createUser(t, "teach@example.com", "supersecret", true)
	category := createCategory(t, "Programming")
	course := createCourse(t, instructor, category)
	mine := createSection(t, course, "Basics")

	other := createCourse(t, instructor, category)
	foreign := createSection(t, other, "Elsewhere")
	cookies := sessionCookieFor(t, instructor)

	path := fmt.Sprintf("/api/instructor/courses/%s/sections/order/update", course.ID)
	body := fmt.Sprintf(`{"section1":{"id":%q},"section2":{"id":%q}}`, mine.ID, foreign.ID)

	resp, _ := env.request(t, "PATCH", path, body, cookies)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 1, reloadSection(t, mine.ID).Order)
}

func TestLessonOrderSwap(t *testing.T) {
	env := newTestEnv(t)
	instructor := createUser(t, "teach@example.com", "supersecret", true)
	category := createCategory(t, "Programming")
	course := createCourse(t, instructor, category)
	section := createSection(t, course, "Basics")
	a := createLesson(t, section, "Hello", 60, "")
	b := createLesson(t, section, "Types", 60, "")
	cookies := sessionCookieFor(t, instructor)

	path := fmt.Sprintf("/api/instructor/courses/%s/sections/%s/lessons/order/update", course.ID, section.ID)
	body := fmt.Sprintf(`{"lesson1":{"id":%q},"lesson2":{"id":%q}}`, a.ID, b.ID)

	resp, _ := env.request(t, "PATCH", path, body, cookies)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var first, second models.Lesson
	require.NoError(t, testDB.First(&first, "id = ?", a.ID).Error)
	require.NoError(t, testDB.First(&second, "id = ?", b.ID).Error)
	assert.Equal(t, 2, first.Order)
	assert.Equal(t, 1, second.Order)
}

func TestPublishCourseIsOneWay(t *testing.T) {
	env := newTestEnv(t)
	instructor := createUser(t, "teach@example.com", "supersecret", true)
	category := createCategory(t, "Programming")
	course := createCourse(t, instructor, category)
	cookies := sessionCookieFor(t, instructor)

	path := fmt.Sprintf("/api/instructor/courses/%s/publish", course.ID)

	resp, payload := env.request(t, "PATCH", path, "", cookies)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := payload["data"].(map[string]interface{})
	assert.Equal(t, true, data["published"])
	assert.True(t, reloadCourse(t, course.ID).Published)

	resp, _ = env.request(t, "PATCH", path, "", cookies)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.True(t, reloadCourse(t, course.ID).Published)
}

func TestOwnershipCheckedAfterExistence(t *testing.T) {
	env := newTestEnv(t)
	owner := createUser(t, "teach@example.com", "supersecret", true)
	category := createCategory(t, "Programming")
	course := createCourse(t, owner, category)

	intruder := createUser(t, "mallory@example.com", "supersecret", true)
	cookies := sessionCookieFor(t, intruder)

	// A real course owned by someone else is forbidden.
	resp, _ := env.request(t, "PATCH",
		fmt.Sprintf("/api/instructor/courses/%s/publish", course.ID), "", cookies)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.False(t, reloadCourse(t, course.ID).Published)

	// A missing course is not found, never forbidden.
	resp, _ = env.request(t, "PATCH",
		"/api/instructor/courses/00000000-0000-0000-0000-000000000001/publish", "", cookies)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSectionOwnershipRejectsCourseMismatch(t *testing.T) {
	env := newTestEnv(t)
	instructor := createUser(t, "teach@example.com", "supersecret", true)
	category := createCategory(t, "Programming")
	courseA := createCourse(t, instructor, category)
	courseB := createCourse(t, instructor, category)
	section := createSection(t, courseA, "Basics")
	cookies := sessionCookieFor(t, instructor)

	// The section exists but belongs to a different course than the path says.
	path := fmt.Sprintf("/api/instructor/courses/%s/sections/%s/update", courseB.ID, section.ID)
	resp, _ := env.request(t, "PATCH", path, `{"title":"Renamed"}`, cookies)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestUpdateCourseSettingsReplacesThumbnail(t *testing.T) {
	env := newTestEnv(t)
	instructor := createUser(t, "teach@example.com", "supersecret", true)
	category := createCategory(t, "Programming")
	course := createCourse(t, instructor, category)
	require.NoError(t, testDB.Model(course).Updates(map[string]interface{}{
		"thumbnail_url": "https://ik.example.com/old.jpg",
		"thumbnail_id":  "old-thumb",
	}).Error)
	cookies := sessionCookieFor(t, instructor)

	path := fmt.Sprintf("/api/instructor/courses/%s/settings/update", course.ID)
	resp, _ := env.request(t, "PATCH", path,
		`{"thumbnailId":"new-thumb","thumbnailUrl":"https://ik.example.com/new.jpg","fileName":"new.jpg"}`,
		cookies)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, []string{"old-thumb"}, env.media.deleted)

	reloaded := reloadCourse(t, course.ID)
	assert.Equal(t, "new-thumb", reloaded.ThumbnailID)
	assert.Equal(t, "https://ik.example.com/new.jpg", reloaded.ThumbnailURL)
}

func TestUpdateCourseDetailsRewritesFields(t *testing.T) {
	env := newTestEnv(t)
	instructor := createUser(t, "teach@example.com", "supersecret", true)
	createCategory(t, "Programming")
	other := createCategory(t, "Design")
	course := createCourse(t, instructor, createCategory(t, "Temp"))
	cookies := sessionCookieFor(t, instructor)

	path := fmt.Sprintf("/api/instructor/courses/%s/details/update", course.ID)
	resp, _ := env.request(t, "PATCH", path,
		`{"title":"Go, Properly","category":"Design","price":99,"level":"intermediate"}`, cookies)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	reloaded := reloadCourse(t, course.ID)
	assert.Equal(t, "Go, Properly", reloaded.Title)
	assert.Equal(t, other.ID, reloaded.CategoryID)
	assert.EqualValues(t, 99, reloaded.Price)
	assert.EqualValues(t, 99, reloaded.OriginalPrice)
}

func TestGetInstructorCourseTreeOrdered(t *testing.T) {
	env := newTestEnv(t)
	instructor := createUser(t, "teach@example.com", "supersecret", true)
	category := createCategory(t, "Programming")
	course := createCourse(t, instructor, category)
	first := createSection(t, course, "Basics")
	second := createSection(t, course, "Advanced")
	createLesson(t, first, "Hello", 60, "")
	cookies := sessionCookieFor(t, instructor)

	// Swap so the stored order differs from insertion order.
	require.NoError(t, testDB.Model(&models.Section{}).Where("id = ?", first.ID).Update("sort_order", 2).Error)
	require.NoError(t, testDB.Model(&models.Section{}).Where("id = ?", second.ID).Update("sort_order", 1).Error)

	resp, payload := env.request(t, "GET",
		fmt.Sprintf("/api/instructor/course-instructor/%s", course.ID), "", cookies)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	data := payload["data"].(map[string]interface{})
	sections := data["sections"].([]interface{})
	require.Len(t, sections, 2)
	assert.Equal(t, "Advanced", sections[0].(map[string]interface{})["title"])
	assert.Equal(t, "Basics", sections[1].(map[string]interface{})["title"])
}
