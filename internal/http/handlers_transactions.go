package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"zakatledger/internal/core"
	"zakatledger/internal/services"
)

// transactionResponse reports the ledger entry a transaction produced. Entry
// is omitted for in-kind income recorded without an account.
type transactionResponse struct {
	Source core.SourceRef    `json:"source"`
	Entry  *core.LedgerEntry `json:"entry,omitempty"`
}

func (s *Server) handleRecordTransaction(c *gin.Context) {
	var tx services.Transaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		respondBindError(c, err)
		return
	}

	entry, err := s.deps.Transactions.Record(c.Request.Context(), tx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, transactionResponse{Source: tx.Source(), Entry: entry})
}

// handleReviseTransaction takes the kind and id from the path; body values
// for them are ignored.
func (s *Server) handleReviseTransaction(c *gin.Context) {
	src, err := sourceParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	var tx services.Transaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		respondBindError(c, err)
		return
	}
	tx.Kind, tx.ID = src.Kind, src.ID

	entry, err := s.deps.Transactions.Revise(c.Request.Context(), tx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactionResponse{Source: src, Entry: entry})
}

func (s *Server) handleCancelTransaction(c *gin.Context) {
	src, err := sourceParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := s.deps.Transactions.Cancel(c.Request.Context(), src); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
