package api

import (
	"github.com/gin-gonic/gin"

	"github.com/teamflow-app/teamflow/internal/authz"
	"github.com/teamflow-app/teamflow/internal/handlers"
	"github.com/teamflow-app/teamflow/internal/middleware"
)

// Appointment reads are gated on participation. Mutations go through the
// service, which requires the Project Manager role on the owning project.
func registerAppointmentRoutes(api *gin.RouterGroup, appointmentHandler *handlers.AppointmentHandler, gate *authz.Gate) {
	participant := middleware.RequireAppointmentParticipation(gate, "appointmentId")

	appointments := api.Group("/appointments")
	{
		appointments.GET("/:appointmentId", participant, appointmentHandler.Get)
		appointments.PUT("/:appointmentId", appointmentHandler.Update)
		appointments.DELETE("/:appointmentId", appointmentHandler.Delete)

		appointments.GET("/:appointmentId/participants", participant, appointmentHandler.Participants)
		appointments.POST("/:appointmentId/participants", appointmentHandler.AddParticipant)
		appointments.DELETE("/:appointmentId/participants/:userId", appointmentHandler.RemoveParticipant)
	}
}
