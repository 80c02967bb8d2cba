package api

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"stability-dashboard/frontend/internal/predict"
	"stability-dashboard/frontend/internal/present"
	"stability-dashboard/frontend/internal/store"
)

//go:embed templates/*.html
var pageFS embed.FS

// Config defines server dependencies.
type Config struct {
	Predictor      predict.Config
	DefaultCountry string
	DBPath         string
	DisableHistory bool
	SilentDB       bool
	AllowedOrigins []string
}

// Server wires HTTP handlers with the prediction client and lookup history.
type Server struct {
	client         *predict.Client
	db             *store.Database
	defaultCountry string
	allowedOrigins []string
	notifier       *LookupNotifier
	metrics        *lookupMetrics
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	client, err := predict.NewClient(cfg.Predictor)
	if err != nil {
		return nil, fmt.Errorf("prediction client: %w", err)
	}

	var db *store.Database
	if cfg.DisableHistory {
		logrus.Info("lookup history disabled via configuration")
	} else {
		if strings.TrimSpace(cfg.DBPath) == "" {
			return nil, errors.New("db path required")
		}
		db, err = store.Open(cfg.DBPath, cfg.SilentDB)
		if err != nil {
			return nil, err
		}
	}

	country := strings.TrimSpace(cfg.DefaultCountry)
	if country == "" {
		country = present.DefaultCountry
	}

	logrus.WithFields(logrus.Fields{
		"predictor":       client.BaseURL(),
		"timeout":         cfg.Predictor.Timeout,
		"default_country": country,
		"history":         db != nil,
	}).Info("stability dashboard configured")

	return &Server{
		client:         client,
		db:             db,
		defaultCountry: country,
		allowedOrigins: cfg.AllowedOrigins,
		notifier:       NewLookupNotifier(),
		metrics:        newLookupMetrics(),
	}, nil
}

// Close releases the history database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	page, err := template.ParseFS(pageFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse page templates: %w", err)
	}
	r.SetHTMLTemplate(page)

	corsCfg := cors.DefaultConfig()
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
		corsCfg.AllowCredentials = true
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/", s.handleIndex)
	r.GET("/results", s.handleResults)
	r.GET("/metrics", gin.WrapH(s.metrics.handler()))

	api := r.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)
		api.GET("/config", s.handleConfig)
		api.GET("/predictions", s.handlePredictions)
		api.POST("/predict", s.handlePredict)
		api.GET("/lookups", s.handleListLookups)
		api.GET("/lookups/stream", s.handleLookupStream)
		api.GET("/lookups/:id", s.handleGetLookup)
	}

	return r, nil
}

type pageData struct {
	Country        string
	DefaultCountry string
	Results        template.HTML
	Error          template.HTML
	Loading        bool
}

func (s *Server) handleIndex(c *gin.Context) {
	data := pageData{DefaultCountry: s.defaultCountry}
	if country, submitted := c.GetQuery("country"); submitted {
		doc := present.NewDocument(country)
		s.runLookup(c.Request.Context(), doc)
		data.Country = doc.Country
		data.Results = doc.Results
		data.Error = doc.Error
		data.Loading = doc.Loading
	}
	c.HTML(http.StatusOK, "index.html", data)
}

func (s *Server) handleResults(c *gin.Context) {
	doc := present.NewDocument(c.Query("country"))
	id, outcome := s.runLookup(c.Request.Context(), doc)
	c.JSON(http.StatusOK, RenderResponse{
		LookupID:    id,
		Country:     outcome.Country,
		State:       string(outcome.State),
		Cards:       outcome.Cards,
		ResultsHTML: string(doc.Results),
		ErrorHTML:   string(doc.Error),
		Loading:     doc.Loading,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"predictor_base_url": s.client.BaseURL(),
		"default_country":    s.defaultCountry,
		"history_enabled":    s.db != nil,
	})
}

func (s *Server) handlePredictions(c *gin.Context) {
	country := c.Query("country")
	if country == "" {
		country = s.defaultCountry
	}
	items, err := s.client.PredictLive(c.Request.Context(), country)
	if err != nil {
		logrus.WithError(err).WithField("country", country).Warn("proxy live predictions")
		s.renderError(c, http.StatusBadGateway, err)
		return
	}
	if items == nil {
		items = []predict.Item{}
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) handlePredict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("request body is required")
		}
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	items, err := s.client.Predict(c.Request.Context(), req.News)
	if err != nil {
		logrus.WithError(err).WithField("articles", len(req.News)).Warn("proxy manual predictions")
		s.renderError(c, http.StatusBadGateway, err)
		return
	}
	if items == nil {
		items = []predict.Item{}
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) handleListLookups(c *gin.Context) {
	if s.db == nil {
		s.renderError(c, http.StatusServiceUnavailable, errHistoryDisabled)
		return
	}
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	if pageSize <= 0 {
		pageSize = 25
	}

	rows, total, err := s.db.ListLookups(store.LookupQuery{
		Country: c.Query("country"),
		State:   c.Query("state"),
		Offset:  page * pageSize,
		Limit:   pageSize,
	})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	states, err := s.db.CountLookupsByState()
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]LookupDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, LookupFromModel(row))
	}
	c.JSON(http.StatusOK, LookupsResponse{Items: dtos, Total: total, States: states})
}

func (s *Server) handleGetLookup(c *gin.Context) {
	if s.db == nil {
		s.renderError(c, http.StatusServiceUnavailable, errHistoryDisabled)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	row, err := s.db.GetLookup(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.renderError(c, http.StatusNotFound, fmt.Errorf("lookup %s not found", id))
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return
	}
	c.JSON(http.StatusOK, LookupFromModel(*row))
}

func (s *Server) handleLookupStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("lookup websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("lookup websocket closed")
			} else {
				logrus.WithError(err).Warn("lookup websocket unexpected close")
			}
			break
		}
	}
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}
