package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/basalcoach/basalcoach/internal/cgm"
	"github.com/basalcoach/basalcoach/internal/coach"
	"github.com/basalcoach/basalcoach/internal/store"
	"github.com/basalcoach/basalcoach/internal/suggest"
	"github.com/basalcoach/basalcoach/internal/therapy"
)

// errBadRequest marks client input errors that have no sentinel of their own.
var errBadRequest = errors.New("bad request")

// fail writes err as a JSON error with a status derived from its kind.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var verr *therapy.ValidationError
	switch {
	case errors.As(err, &verr):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, errBadRequest), errors.Is(err, therapy.ErrHourOutOfRange):
		status = http.StatusBadRequest
	case errors.Is(err, coach.ErrNoReport):
		status = http.StatusNotFound
	case errors.Is(err, suggest.ErrNoPending), errors.Is(err, suggest.ErrIDMismatch), errors.Is(err, therapy.ErrNoSegments):
		status = http.StatusConflict
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(err error) error {
	return errors.Join(errBadRequest, err)
}

func (s *Server) handleGetSettings(c *gin.Context) {
	settings, err := s.svc.Settings()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) handlePutSettings(c *gin.Context) {
	var settings therapy.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		fail(c, badRequest(err))
		return
	}
	if err := s.svc.SaveSettings(settings, store.SourceManual); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) handleResetSettings(c *gin.Context) {
	settings, err := s.svc.ResetSettings()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) handleResolve(c *gin.Context) {
	kind, err := therapy.ParseKind(c.Query("schedule"))
	if err != nil {
		fail(c, badRequest(err))
		return
	}
	hour, err := strconv.Atoi(c.Query("hour"))
	if err != nil {
		fail(c, badRequest(err))
		return
	}
	seg, err := s.svc.Resolve(kind, hour)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"schedule": kind,
		"hour":     hour,
		"segment":  seg,
		"unit":     kind.Unit(),
	})
}

func (s *Server) handleImportReport(c *gin.Context) {
	var summary cgm.Summary
	if err := c.ShouldBindJSON(&summary); err != nil {
		fail(c, badRequest(err))
		return
	}
	res, err := s.svc.Import(&summary)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) handleListReports(c *gin.Context) {
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		fail(c, err)
		return
	}
	reports, err := s.svc.Reports(limit)
	if err != nil {
		fail(c, err)
		return
	}
	if reports == nil {
		reports = []store.ReportInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (s *Server) handleLatestProblems(c *gin.Context) {
	summary, err := s.svc.LatestReport()
	if err != nil {
		fail(c, err)
		return
	}
	s.writeFindings(c, summary)
}

func (s *Server) handleProblems(c *gin.Context) {
	var summary cgm.Summary
	if err := c.ShouldBindJSON(&summary); err != nil {
		fail(c, badRequest(err))
		return
	}
	if err := cgm.Validate(&summary); err != nil {
		fail(c, err)
		return
	}
	cgm.Normalize(&summary)
	s.writeFindings(c, &summary)
}

func (s *Server) writeFindings(c *gin.Context, summary *cgm.Summary) {
	findings, err := s.svc.Analyze(summary)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reportId": summary.ID, "findings": findings})
}

func (s *Server) handleGenerate(c *gin.Context) {
	rec, err := s.svc.Recommend()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendation": rec})
}

func (s *Server) handleCandidates(c *gin.Context) {
	recs, err := s.svc.Candidates()
	if err != nil {
		fail(c, err)
		return
	}
	if recs == nil {
		recs = []suggest.Recommendation{}
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recs})
}

func (s *Server) handlePending(c *gin.Context) {
	rec, err := s.svc.Pending()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendation": rec})
}

// decisionRequest names the recommendation being decided on. An empty ID
// means whichever is pending.
type decisionRequest struct {
	ID string `json:"id"`
}

func bindDecision(c *gin.Context) (string, error) {
	var req decisionRequest
	if c.Request.ContentLength == 0 {
		return "", nil
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", badRequest(err)
	}
	return req.ID, nil
}

func (s *Server) handleApply(c *gin.Context) {
	id, err := bindDecision(c)
	if err != nil {
		fail(c, err)
		return
	}
	out, err := s.svc.Accept(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"recommendation": out.Recommendation,
		"changed":        out.Changed,
		"settings":       out.Settings,
	})
}

func (s *Server) handleDismiss(c *gin.Context) {
	id, err := bindDecision(c)
	if err != nil {
		fail(c, err)
		return
	}
	rec, err := s.svc.Dismiss(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendation": rec})
}

func (s *Server) handleHistory(c *gin.Context) {
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		fail(c, err)
		return
	}
	recs, err := s.svc.History(limit)
	if err != nil {
		fail(c, err)
		return
	}
	if recs == nil {
		recs = []suggest.Recommendation{}
	}
	c.JSON(http.StatusOK, gin.H{"applied": recs})
}

// queryInt reads a positive integer query parameter.
func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, badRequest(errors.New(key + " must be a positive integer"))
	}
	return n, nil
}
