package router

import (
	"github.com/labstack/echo/v4"

	"studyhub/internal/adapter/api/handler"
	"studyhub/internal/adapter/api/middleware"
)

func SetupFAQRouter(v1 *echo.Group, staffMiddleware *middleware.StaffMiddleware) {
	faqHandler := handler.GetFAQHandler()

	faqGroup := v1.Group("/papers/:paperId/topics/:topicId/faqs")
	faqGroup.GET("", faqHandler.ListFAQs)
	faqGroup.POST("", faqHandler.SaveFAQ, staffMiddleware.StaffOnly)
	faqGroup.GET("/draft", faqHandler.DraftFAQ, staffMiddleware.StaffOnly)
}
