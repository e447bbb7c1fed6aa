package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/invoicelens/invoice-extractor/internal/entity"
	"github.com/invoicelens/invoice-extractor/internal/export"
)

func (s *Server) handleListInvoices(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	invoices, total, err := s.repo.List(c.Request.Context(), page, pageSize)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"invoices":  invoices,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (s *Server) handleGetInvoice(c *gin.Context) {
	inv, err := s.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) handleUpdateInvoice(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	inv, err := s.repo.UpdateHeader(c.Request.Context(), c.Param("id"), fields)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) handleDeleteInvoice(c *gin.Context) {
	if err := s.repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "invoice deleted"})
}

func (s *Server) handleGetDetails(c *gin.Context) {
	inv, err := s.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice_id": inv.ID, "line_items": inv.LineItems})
}

func (s *Server) handleReplaceDetails(c *gin.Context) {
	var body struct {
		LineItems []entity.LineItem `json:"line_items"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	inv, err := s.repo.ReplaceLineItems(c.Request.Context(), c.Param("id"), body.LineItems)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) handleDeleteDetail(c *gin.Context) {
	itemID, err := strconv.ParseUint(c.Param("detailID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid detail id"})
		return
	}

	inv, err := s.repo.DeleteLineItem(c.Request.Context(), c.Param("id"), uint(itemID))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) handleExportInvoices(c *gin.Context) {
	invoices, _, err := s.repo.List(c.Request.Context(), 1, 100)
	if err != nil {
		s.respondError(c, err)
		return
	}

	filename := "invoices_" + time.Now().UTC().Format("20060102_150405") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", export.ContentTypeXLSX)

	if err := s.exporter.WriteXLSX(c.Writer, invoices); err != nil {
		s.logger.Error("server.export.failed", "error", err)
	}
}
