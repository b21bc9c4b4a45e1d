package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hudmol/yale-accession-marc-export/internal/export"
)

// HealthHandler answers liveness probes.
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RunMarcExportHandler triggers a single export round on demand. Only enabled
// through configuration, for testing against a staging target.
func RunMarcExportHandler(exporter *export.Exporter, token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token != "" {
			supplied := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
		}

		result := exporter.RunOnce(time.Now())
		if result.Failed() {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":  result.Err.Error(),
				"report": result.Report.String(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"report": result.Report.String(),
		})
	}
}
