package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pagination describes the page window returned by list endpoints.
type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
	Limit int   `json:"limit"`
}

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Success returns a standard success response: {success, data}.
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// Created returns a 201 success response for newly created resources.
func Created(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}

// Page returns a paginated success response: {success, count, pagination, data}.
func Page(ctx *gin.Context, data interface{}, count int, p Pagination) {
	ctx.JSON(http.StatusOK, gin.H{
		"success":    true,
		"count":      count,
		"pagination": p,
		"data":       data,
	})
}

// Error returns a standard error response: {message}.
func Error(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{"message": message})
}

// ValidationErrors returns field-level validation failures as a 400.
func ValidationErrors(ctx *gin.Context, errs []FieldError) {
	ctx.JSON(http.StatusBadRequest, gin.H{"errors": errs})
}

// NewPagination computes the derived page count for a result window.
func NewPagination(total int64, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Total: total, Page: page, Pages: pages, Limit: limit}
}
