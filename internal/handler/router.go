package handler

import "github.com/gin-gonic/gin"

// Handlers groups every API handler mounted by RegisterRoutes.
type Handlers struct {
	Subjects   *SubjectHandler
	Attendance *AttendanceHandler
	Calendar   *CalendarHandler
	Data       *DataHandler
	Reports    *ReportHandler
	Changes    *ChangeHandler
}

// RegisterRoutes mounts the API under api.
func RegisterRoutes(api *gin.RouterGroup, h Handlers) {
	subjects := api.Group("/subjects")
	subjects.GET("", h.Subjects.List)
	subjects.POST("", h.Subjects.Create)
	subjects.GET("/:id", h.Subjects.Get)
	subjects.PUT("/:id", h.Subjects.Update)
	subjects.DELETE("/:id", h.Subjects.Delete)
	subjects.PATCH("/:id/counts", h.Subjects.EditCounts)
	subjects.POST("/:id/attendance", h.Attendance.Mark)
	subjects.GET("/:id/projection", h.Attendance.Projection)

	api.GET("/attendance/overall", h.Attendance.Overall)

	calendar := api.Group("/calendar")
	calendar.GET("/events", h.Calendar.List)
	calendar.GET("/events/:date", h.Calendar.ListByDate)
	calendar.POST("/events/:date", h.Calendar.Create)
	calendar.POST("/events/:date/:id/toggle", h.Calendar.Toggle)
	calendar.POST("/retention", h.Calendar.Retention)

	api.DELETE("/data", h.Data.Clear)
	api.GET("/reports/attendance", h.Reports.Attendance)
	api.GET("/changes", h.Changes.Stream)
}
