package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kubeadapt/clusterview/internal/collector"
	svcerrors "github.com/kubeadapt/clusterview/internal/errors"
	"github.com/kubeadapt/clusterview/internal/view"
	"github.com/kubeadapt/clusterview/pkg/model"
)

type errorResponse struct {
	Code  svcerrors.Code `json:"code"`
	Error string         `json:"error"`
}

type groupByRequest struct {
	GroupBy *model.MemoryGroupByKey `json:"group_by"`
}

type memoryStateResponse struct {
	Paused  bool                   `json:"paused"`
	GroupBy model.MemoryGroupByKey `json:"group_by"`
}

func (s *Server) registerRoutes(r *gin.RouterGroup) {
	r.GET("/cluster", s.getCluster)
	r.GET("/nodes/:hostname", s.getNode)
	r.GET("/actors", s.getActors)
	r.GET("/memory", s.getMemory)
	r.PUT("/memory/group-by", s.putGroupBy)
	r.POST("/memory/pause", s.pauseMemory)
	r.POST("/memory/resume", s.resumeMemory)
	r.GET("/status", s.getStatus)
	r.GET("/stream", s.stream)
}

func (s *Server) clusterView() model.ClusterView {
	snap := s.source.NodeSummaries()
	if snap == nil {
		return model.ClusterView{Loading: true, Nodes: []model.NodeView{}}
	}
	v := view.BuildClusterView(snap.Nodes())
	v.GeneratedAt = time.Now().UnixMilli()
	return v
}

func (s *Server) getCluster(c *gin.Context) {
	c.JSON(http.StatusOK, s.clusterView())
}

// getNode serves one node row. Nodes may share a hostname: the first in
// snapshot order is returned unless ip selects another.
func (s *Server) getNode(c *gin.Context) {
	hostname := c.Param("hostname")
	if n, ok := s.source.Node(hostname, c.Query("ip")); ok {
		c.JSON(http.StatusOK, view.BuildNodeView(n))
		return
	}
	if s.source.NodeSummaries() == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"loading": true})
		return
	}
	c.JSON(http.StatusNotFound, errorResponse{Code: svcerrors.ErrInvalidRequest, Error: "node not found: " + hostname})
}

func (s *Server) getActors(c *gin.Context) {
	c.JSON(http.StatusOK, view.BuildLogicalView(s.source.NodeSummaries(), c.Query("q")))
}

// getMemory serves the grouped memory table. limit=0 shows every row.
func (s *Server) getMemory(c *gin.Context) {
	limit := s.opts.VisibleEntries
	if raw, ok := c.GetQuery("limit"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	table, groupBy := s.source.MemorySnapshot()
	if table == nil {
		groupBy = s.memory.GroupBy()
	}
	c.JSON(http.StatusOK, view.BuildMemoryView(table, groupBy, s.memory.Paused(), limit))
}

func (s *Server) putGroupBy(c *gin.Context) {
	var req groupByRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.GroupBy == nil {
		badRequest(c, "group_by is required")
		return
	}
	if err := s.memory.SetGroupBy(*req.GroupBy); err != nil {
		if errors.Is(err, collector.ErrInvalidGroupBy) {
			badRequest(c, err.Error())
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse{Code: svcerrors.ErrInvalidRequest, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.memoryState())
}

func (s *Server) pauseMemory(c *gin.Context) {
	s.memory.Pause()
	c.JSON(http.StatusOK, s.memoryState())
}

func (s *Server) resumeMemory(c *gin.Context) {
	s.memory.Resume()
	c.JSON(http.StatusOK, s.memoryState())
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.status.Status())
}

func (s *Server) memoryState() memoryStateResponse {
	return memoryStateResponse{Paused: s.memory.Paused(), GroupBy: s.memory.GroupBy()}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Code: svcerrors.ErrInvalidRequest, Error: msg})
}
