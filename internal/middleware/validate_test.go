package middleware

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMedia struct {
	deleted []string
	bulks   [][]string
}

func (m *recordingMedia) DeleteFile(ctx context.Context, fileID string) error {
	m.deleted = append(m.deleted, fileID)
	return nil
}

func (m *recordingMedia) BulkDelete(ctx context.Context, fileIDs []string) error {
	m.bulks = append(m.bulks, fileIDs)
	return nil
}

type lessonBody struct {
	Title    string `json:"title" validate:"required"`
	Duration int    `json:"duration" validate:"gte=0"`
	VideoID  string `json:"videoId"`
}

func newValidateApp(media *recordingMedia) *fiber.App {
	app := fiber.New()
	app.Post("/lessons", ValidateBody[lessonBody](media), func(c *fiber.Ctx) error {
		body := ValidatedBody[lessonBody](c)
		return c.JSON(fiber.Map{"title": body.Title})
	})
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) int {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestValidateBodyPassesCheckedValue(t *testing.T) {
	media := &recordingMedia{}
	app := newValidateApp(media)

	status := postJSON(t, app, "/lessons", `{"title":"Intro","duration":90}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, media.deleted)
}

func TestValidateBodyRejectsMissingField(t *testing.T) {
	media := &recordingMedia{}
	app := newValidateApp(media)

	status := postJSON(t, app, "/lessons", `{"duration":90}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestValidateBodyCleansUpOrphanedMedia(t *testing.T) {
	media := &recordingMedia{}
	app := newValidateApp(media)

	// Validation fails on the missing title, but the body already references
	// an uploaded video. That upload must be deleted.
	status := postJSON(t, app, "/lessons", `{"duration":90,"videoId":"vid-42"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, []string{"vid-42"}, media.deleted)
}

func TestValidateBodyIgnoresMediaOnValidRequest(t *testing.T) {
	media := &recordingMedia{}
	app := newValidateApp(media)

	status := postJSON(t, app, "/lessons", `{"title":"Intro","duration":90,"videoId":"vid-42"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, media.deleted)
	assert.Empty(t, media.bulks)
}
