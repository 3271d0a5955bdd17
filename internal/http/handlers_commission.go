package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"zakatledger/internal/commission"
	"zakatledger/internal/services"
)

func (s *Server) handlePreview(c *gin.Context) {
	var req services.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	res, err := s.deps.Previewer.Preview(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleListSnapshots(c *gin.Context) {
	fy := strings.TrimSpace(c.Query("fiscal_year"))
	list, err := s.deps.Snapshots.List(c.Request.Context(), fy)
	if err != nil {
		respondError(c, err)
		return
	}

	total := decimal.Zero
	for _, snap := range list {
		total = total.Add(snap.CommissionAmount)
	}
	c.JSON(http.StatusOK, gin.H{
		"fiscal_year_id":   fy,
		"snapshots":        list,
		"commission_total": total,
	})
}

func (s *Server) handleGetSnapshot(c *gin.Context) {
	src, err := sourceParam(c)
	if err != nil {
		respondError(c, err)
		return
	}
	snap, err := s.deps.Snapshots.Get(c.Request.Context(), src)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type configRequest struct {
	BasisMode commission.BasisMode                    `json:"basis_mode" binding:"omitempty,oneof=net_after_reconciliation gross_before_reconciliation"`
	Overrides map[commission.Category]decimal.Decimal `json:"overrides"`
}

func (s *Server) handleListConfigs(c *gin.Context) {
	configs, err := s.deps.Configs.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"configs": configs})
}

// handleGetConfig returns the effective config, which is the default one for
// fiscal years never configured.
func (s *Server) handleGetConfig(c *gin.Context) {
	cfg, err := s.deps.Configs.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) handleSaveConfig(c *gin.Context) {
	var req configRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	cfg, err := s.deps.Configs.Save(c.Request.Context(), commission.Config{
		FiscalYearID: c.Param("id"),
		BasisMode:    req.BasisMode,
		Overrides:    req.Overrides,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}
