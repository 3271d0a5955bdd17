package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"zakatledger/internal/core"
	"zakatledger/internal/ledger"
)

type createAccountRequest struct {
	Channel   core.Channel `json:"channel" binding:"required,oneof=cash bank other"`
	Name      string       `json:"name" binding:"required,max=100"`
	SortOrder int          `json:"sort_order" binding:"gte=0"`
}

func (s *Server) handleCreateAccount(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	acc, err := s.deps.Ledger.CreateAccount(c.Request.Context(), ledger.NewAccount{
		Channel:   req.Channel,
		Name:      sanitizeInput(req.Name),
		SortOrder: req.SortOrder,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, acc)
}

func (s *Server) handleListAccounts(c *gin.Context) {
	accounts, err := s.deps.Ledger.ListAccounts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

func (s *Server) handleGetAccount(c *gin.Context) {
	acc, err := s.deps.Ledger.GetAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

func (s *Server) handleDeleteAccount(c *gin.Context) {
	if err := s.deps.Ledger.DeleteAccount(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAccountBalance(c *gin.Context) {
	id := c.Param("id")
	bal, err := s.deps.Ledger.CurrentBalance(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_id": id, "balance": bal})
}

func (s *Server) handleAccountEntries(c *gin.Context) {
	id := c.Param("id")
	entries, err := s.deps.Ledger.Entries(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_id": id, "entries": entries})
}

func (s *Server) handleAccountAudit(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.deps.Ledger.GetAccount(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	breaks, err := s.deps.Ledger.VerifyChain(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_id": id, "consistent": len(breaks) == 0, "breaks": breaks})
}

// balanceVersion tags the balance views for conditional GETs. The ledger
// store bumps it after every mutation.
type balanceVersion struct {
	instance string
	n        atomic.Uint64
}

func newBalanceVersion() *balanceVersion {
	return &balanceVersion{instance: strings.SplitN(uuid.NewString(), "-", 2)[0]}
}

func (v *balanceVersion) InvalidateBalances(context.Context, ...string) {
	v.n.Add(1)
}

func (v *balanceVersion) etag() string {
	return fmt.Sprintf(`W/"%s-%d"`, v.instance, v.n.Load())
}

// balanceTag returns the tag of the balances about to be read, or "" after
// answering 304 when the client already holds them. The tag is taken before
// the read so a racing write can only make it older.
func (s *Server) balanceTag(c *gin.Context) string {
	tag := s.balances.etag()
	if c.GetHeader("If-None-Match") == tag {
		c.Header("ETag", tag)
		c.Status(http.StatusNotModified)
		return ""
	}
	return tag
}

func (s *Server) handleBalances(c *gin.Context) {
	tag := s.balanceTag(c)
	if tag == "" {
		return
	}
	sum, err := s.deps.Ledger.Balances(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("ETag", tag)
	c.JSON(http.StatusOK, sum)
}

func (s *Server) handleTotalBalance(c *gin.Context) {
	tag := s.balanceTag(c)
	if tag == "" {
		return
	}
	total, err := s.deps.Ledger.TotalBalance(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("ETag", tag)
	c.JSON(http.StatusOK, gin.H{"total": total})
}
