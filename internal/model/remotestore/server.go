package remotestore

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/somanshu-agarwal/BareMinimum/internal/clients/cache"
	"github.com/somanshu-agarwal/BareMinimum/internal/entity/expense"
	"github.com/somanshu-agarwal/BareMinimum/internal/logger"
	"github.com/somanshu-agarwal/BareMinimum/internal/model/customerr"
)

const ownerContextKey = "owner"

type expensesStorage interface {
	ListByOwner(ctx context.Context, owner string) ([]expense.Record, error)
	Insert(ctx context.Context, rec expense.Record) (expense.Record, error)
	Delete(ctx context.Context, owner, id string) error
}

type listingCache interface {
	CacheExpenses(owner string, payload []byte) error
	GetExpenses(owner string) ([]byte, error)
	Invalidate(owner string) error
}

// Server exposes the record-collection endpoint the sync agents consume:
// query-by-owner, insert-one-returning-canonical-record, delete-by-id.
// Identity verification proper belongs to the external identity provider;
// here the bearer token is the opaque owner id.
type Server struct {
	storage expensesStorage
	cache   listingCache
}

type listResponse struct {
	Expenses []expense.Record `json:"expenses"`
}

type insertRequest struct {
	Expense expense.Record `json:"expense"`
}

type insertResponse struct {
	Expense expense.Record `json:"expense"`
}

// NewRouter builds the REST surface. cache may be nil to serve straight
// from postgres.
func NewRouter(storage expensesStorage, cache listingCache) *gin.Engine {
	s := &Server{storage: storage, cache: cache}

	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group("/v1", authOwner)
	v1.GET("/expenses", s.listExpenses)
	v1.POST("/expenses", s.insertExpense)
	v1.DELETE("/expenses/:id", s.deleteExpense)

	return router
}

func authOwner(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity token"})
		return
	}
	c.Set(ownerContextKey, token)
	c.Next()
}

func (s *Server) listExpenses(c *gin.Context) {
	owner := c.GetString(ownerContextKey)
	if requested := c.Query("owner"); requested != "" && requested != owner {
		c.JSON(http.StatusForbidden, gin.H{"error": "owner mismatch"})
		return
	}

	if s.cache != nil {
		if payload, err := s.cache.GetExpenses(owner); err == nil {
			c.Data(http.StatusOK, "application/json", payload)
			return
		} else if !cache.IsCacheMiss(err) {
			logger.Warn("expenses cache read failed", zap.Error(err))
		}
	}

	recs, err := s.storage.ListByOwner(c.Request.Context(), owner)
	if err != nil {
		logger.Error("failed to list expenses", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}

	payload, err := json.Marshal(listResponse{Expenses: recs})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encoding failure"})
		return
	}
	if s.cache != nil {
		if err = s.cache.CacheExpenses(owner, payload); err != nil {
			logger.Warn("expenses cache write failed", zap.Error(err))
		}
	}
	c.Data(http.StatusOK, "application/json", payload)
}

func (s *Server) insertExpense(c *gin.Context) {
	owner := c.GetString(ownerContextKey)

	var req insertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed expense"})
		return
	}
	rec := req.Expense
	if rec.ID == "" || !rec.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expense needs an id and a positive amount"})
		return
	}
	rec.Owner = owner

	canonical, err := s.storage.Insert(c.Request.Context(), rec)
	if customerr.IsInvalidRecord(err) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		logger.Error("failed to insert expense", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	s.invalidate(owner)
	c.JSON(http.StatusOK, insertResponse{Expense: canonical})
}

func (s *Server) deleteExpense(c *gin.Context) {
	owner := c.GetString(ownerContextKey)
	id := c.Param("id")

	if err := s.storage.Delete(c.Request.Context(), owner, id); err != nil {
		logger.Error("failed to delete expense", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	s.invalidate(owner)
	c.Status(http.StatusNoContent)
}

func (s *Server) invalidate(owner string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(owner); err != nil {
		logger.Warn("expenses cache invalidation failed", zap.Error(err))
	}
}
