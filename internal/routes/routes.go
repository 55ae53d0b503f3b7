package routes

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"github.com/example/coursehub/internal/config"
	"github.com/example/coursehub/internal/handlers"
	"github.com/example/coursehub/internal/middleware"
	"github.com/example/coursehub/internal/services"
)

// Deps carries the external collaborators handlers depend on. Tests
// substitute the Cache, Notifier and MediaStore with stubs.
type Deps struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Cache    handlers.ProfileCache
	Notifier services.Notifier
	Media    services.MediaStore
	ImageKit *services.ImageKitService
}

// NewApp builds the fiber application with the standard middleware stack and
// all routes registered.
func NewApp(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Coursehub Backend",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     deps.Cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowCredentials: true,
	}))

	Register(app, deps)
	return app
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, deps Deps) {
	db, cfg := deps.DB, deps.Cfg

	otps := services.NewOTPService(db, deps.Notifier)

	authHandler := handlers.NewAuthHandler(db, cfg, deps.Cache, otps)
	oauthHandler := handlers.NewOAuthHandler(db, cfg)
	coursesHandler := handlers.NewCoursesHandler(db)
	instructorHandler := handlers.NewInstructorHandler(db, deps.Media)
	reviewHandler := handlers.NewReviewHandler(db)
	mediaHandler := handlers.NewMediaHandler(db, deps.ImageKit)

	session := middleware.RequireSession(cfg)
	otpGate := middleware.RequireOTPToken(cfg)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", middleware.ValidateBody[handlers.RegisterRequest](deps.Media), authHandler.Register)
	auth.Post("/login", middleware.ValidateBody[handlers.LoginRequest](deps.Media), authHandler.Login)
	auth.Post("/verify-email", otpGate, middleware.ValidateBody[handlers.OTPRequest](deps.Media), authHandler.VerifyEmail)
	auth.Post("/logout", session, authHandler.Logout)
	auth.Get("/me", session, authHandler.Me)
	auth.Get("/google", oauthHandler.GoogleAuth)
	auth.Get("/google/callback", oauthHandler.GoogleCallback)

	// Public browsing
	courses := api.Group("/courses")
	courses.Get("/categories", session, coursesHandler.GetCategories)
	courses.Get("/all-courses", coursesHandler.GetAllCourses)
	courses.Get("/featured-courses", coursesHandler.GetFeaturedCourses)
	courses.Get("/course/:courseId", session, coursesHandler.GetCourseByID)

	// Instructor surface
	instructor := api.Group("/instructor", session)
	instructor.Get("/courses", instructorHandler.GetCourses)
	instructor.Post("/courses/create", middleware.ValidateBody[handlers.CourseFormRequest](deps.Media), instructorHandler.CreateCourse)
	instructor.Post("/create-category", middleware.ValidateBody[handlers.CreateCategoryRequest](deps.Media), instructorHandler.CreateCategory)
	instructor.Get("/course-instructor/:courseId", instructorHandler.GetCourseByID)
	instructor.Post("/courses/:courseId/sections/create", middleware.ValidateBody[handlers.SectionRequest](deps.Media), instructorHandler.CreateSection)
	instructor.Post("/courses/:courseId/sections/:sectionId/lessons/create", middleware.ValidateBody[handlers.LessonRequest](deps.Media), instructorHandler.AddLesson)
	instructor.Delete("/courses/:courseId/sections/:sectionId/lessons/:lessonId/delete", instructorHandler.DeleteLesson)
	instructor.Patch("/courses/:courseId/sections/order/update", middleware.ValidateBody[handlers.SectionOrderRequest](deps.Media), instructorHandler.UpdateSectionOrder)
	instructor.Patch("/courses/:courseId/sections/:sectionId/lessons/order/update", middleware.ValidateBody[handlers.LessonOrderRequest](deps.Media), instructorHandler.UpdateLessonOrder)
	instructor.Patch("/courses/:courseId/details/update", middleware.ValidateBody[handlers.CourseFormRequest](deps.Media), instructorHandler.UpdateCourseDetails)
	instructor.Patch("/courses/:courseId/settings/update", middleware.ValidateBody[handlers.CourseSettingsRequest](deps.Media), instructorHandler.UpdateCourseSettings)
	instructor.Delete("/courses/:courseId/sections/:sectionId/delete", instructorHandler.DeleteSection)
	instructor.Patch("/courses/:courseId/sections/:sectionId/update", middleware.ValidateBody[handlers.SectionRequest](deps.Media), instructorHandler.UpdateSectionDetails)
	instructor.Patch("/courses/:courseId/publish", instructorHandler.PublishCourse)

	// Reviews
	review := api.Group("/review", session)
	review.Post("/create", middleware.ValidateBody[handlers.ReviewRequest](deps.Media), reviewHandler.Create)

	// Media upload credentials
	imagekit := api.Group("/imagekit", session)
	imagekit.Get("/imagekit-auth", mediaHandler.GetUploadAuth)
}

// errorHandler maps errors to the {success, message} envelope. Unexpected
// errors never leak internal text across the HTTP boundary.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	} else {
		log.Printf("[HTTP] %s %s failed: %v", c.Method(), c.Path(), err)
	}

	return c.Status(code).JSON(fiber.Map{
		"message": message,
		"success": false,
	})
}
