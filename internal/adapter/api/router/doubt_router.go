package router

import (
	"github.com/labstack/echo/v4"

	"studyhub/internal/adapter/api/handler"
	"studyhub/internal/adapter/api/middleware"
)

func SetupDoubtRouter(v1 *echo.Group, staffMiddleware *middleware.StaffMiddleware) {
	doubtHandler := handler.GetDoubtHandler()
	ratingHandler := handler.GetRatingHandler()

	doubtGroup := v1.Group("/doubts")
	doubtGroup.POST("", doubtHandler.CreateDoubt)
	doubtGroup.GET("/mine", doubtHandler.ListStudentDoubts)
	doubtGroup.GET("/:id", doubtHandler.GetDoubt)
	doubtGroup.POST("/:id/resolve", doubtHandler.ResolveDoubt, staffMiddleware.StaffOnly)
	doubtGroup.POST("/:id/rating", ratingHandler.SubmitRating)

	v1.GET("/papers/:paperId/doubts", doubtHandler.ListPaperDoubts, staffMiddleware.StaffOnly)

	facultyGroup := v1.Group("/faculty/:id")
	facultyGroup.GET("/rating", ratingHandler.FacultyRating)
	facultyGroup.GET("/ratings", ratingHandler.ListFacultyRatings)
}
