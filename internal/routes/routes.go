package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/hudmol/yale-accession-marc-export/config"
	"github.com/hudmol/yale-accession-marc-export/internal/export"
	"github.com/hudmol/yale-accession-marc-export/internal/handlers"
)

// SetupRouter registers the exporter's administrative routes.
func SetupRouter(exporter *export.Exporter, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	r.GET("/health", handlers.HealthHandler)

	if cfg.TestEndpoint.Enabled {
		r.POST("/run-marc-export", handlers.RunMarcExportHandler(exporter, cfg.TestEndpoint.Token))
	}

	return r
}
