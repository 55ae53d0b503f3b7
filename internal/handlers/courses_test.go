package handlers_test

import (
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coursehub/internal/models"
)

func TestGetAllCoursesIsPublic(t *testing.T) {
	env := newTestEnv(t)
	instructor := createUser(t, "teach@example.com", "supersecret", true)
	category := createCategory(t, "Programming")
	createCourse(t, instructor, category)
	createCourse(t, instructor, category)

	resp, payload := env.request(t, "GET", "/api/courses/all-courses", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, payload["count"])

	data := payload["data"].([]interface{})
	require.Len(t, data, 2)
	course := data[0].(map[string]interface{})
	// Ownership is internal; the public payload never carries it.
	_, exposed := course["instructorId"]
	assert.False(t, exposed)
}

func TestGetAllCoursesPagination(t *testing.T) {
	env := newTestEnv(t)
	instructor := createUser(t, "teach@example.com", "supersecret", true)
	category := createCategory(t, "Programming")
	for i := 0; i < 5; i++ {
		createCourse(t, instructor, category)
	}

	resp, payload := env.request(t, "GET", "/api/courses/all-courses?page=2&limit=2", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, payload["count"])

	resp, payload = env.request(t, "GET", "/api/courses/all-courses?page=3&limit=2", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, payload["count"])
}

func TestGetFeaturedCoursesOnlyPublished(t *testing.T) {
	env := newTestEnv(t)
	instructor := createUser(t, "teach@example.com", "supersecret", true)
	category := createCategory(t, "Programming")
	published := createCourse(t, instructor, category)
	require.NoError(t, testDB.Model(published).Update("published", true).Error)
	createCourse(t, instructor, category)

	resp, payload := env.request(t, "GET", "/api/courses/featured-courses", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, payload["count"])

	data := payload["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, published.ID.String(), data[0].(map[string]interface{})["id"])
}

func TestGetCategoriesRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	createCategory(t, "Programming")

	resp, _ := env.request(t, "GET", "/api/courses/categories", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	user := createUser(t, "student@example.com", "supersecret", true)
	resp, payload := env.request(t, "GET", "/api/courses/categories", "", sessionCookieFor(t, user))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, payload["count"])
}

func TestGetCourseByIDWithReviews(t *testing.T) {
	env := newTestEnv(t)
	instructor := createUser(t, "teach@example.com", "supersecret", true)
	category := createCategory(t, "Programming")
	course := createCourse(t, instructor, category)
	section := createSection(t, course, "Basics")
	createLesson(t, section, "Hello", 60, "")

	reviewer := createUser(t, "student@example.com", "supersecret", true)
	review := &models.Review{CourseID: course.ID, UserID: reviewer.ID, Content: "Solid", Rating: 4}
	require.NoError(t, testDB.Create(review).Error)

	path := fmt.Sprintf("/api/courses/course/%s", course.ID)
	resp, payload := env.request(t, "GET", path, "", sessionCookieFor(t, reviewer))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	data := payload["data"].(map[string]interface{})
	sections := data["sections"].([]interface{})
	require.Len(t, sections, 1)
	reviews := data["reviews"].([]interface{})
	require.Len(t, reviews, 1)
	user := reviews[0].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, "Test User", user["name"])
}

func TestGetCourseByIDUnknown(t *testing.T) {
	env := newTestEnv(t)
	user := createUser(t, "student@example.com", "supersecret", true)

	resp, _ := env.request(t, "GET",
		"/api/courses/course/00000000-0000-0000-0000-000000000001", "", sessionCookieFor(t, user))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
