package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"qbr-generator-go/internal/composer"
	"qbr-generator-go/internal/dataset"
	"qbr-generator-go/internal/halo"
	"qbr-generator-go/internal/logger"
	"qbr-generator-go/internal/metrics"
	"qbr-generator-go/internal/recommend"
	"qbr-generator-go/internal/template"
	"qbr-generator-go/internal/types"
)

const pptxContentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

type generateRequest struct {
	ClientID        int      `json:"client_id"`
	ClientName      string   `json:"client_name"`
	StartDate       string   `json:"start_date"` // YYYY-MM-DD
	EndDate         string   `json:"end_date"`
	MSPContact      string   `json:"msp_contact"`
	UseAI           bool     `json:"use_ai"`
	NumRecs         int      `json:"num_recommendations"`
	SampleSize      int      `json:"sample_size"`
	Recommendations []string `json:"recommendations"` // manual fallback
}

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "qbr-generator-go").Info("starting service")

	templatePath := envOr("TEMPLATE_PATH", "Master_QBR_Template.pptx")
	if _, err := os.Stat(templatePath); os.IsNotExist(err) {
		log.WithField("template_path", templatePath).Info("master template missing, building it")
		if err := template.Write(templatePath); err != nil {
			log.WithError(err).Fatal("failed to build master template")
		}
	}

	haloCfg := halo.ConfigFromEnv()
	datasetPath := os.Getenv("DATASET_PATH")
	log.WithField("halo_configured", haloCfg.Configured()).
		WithField("dataset_path", datasetPath).
		Info("ticket sources resolved")

	mux := http.NewServeMux()

	// health
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		logger.New().WithRequest(r).Info("health check")
		fmt.Fprint(w, "ok")
	})

	// metrics preview: tickets in, token map out
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "metrics")
		var payload struct {
			Tickets []types.Ticket `json:"tickets"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			reqLog.WithError(err).Warn("bad request body")
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		result := metrics.Aggregate(payload.Tickets, metrics.DefaultClassification())
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.Encode(result.Tokens())
	})

	// full generation: fetch tickets, compose, return the deck
	mux.HandleFunc("/generate", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "generate")
		reqLog.Info("generate request received")

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			reqLog.WithError(err).Warn("bad request body")
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if req.ClientName == "" {
			http.Error(w, "missing client_name", http.StatusBadRequest)
			return
		}

		start := time.Now()

		tickets, err := fetchTickets(r, req, haloCfg, datasetPath)
		if err != nil {
			reqLog.WithError(err).Error("ticket fetch failed")
			http.Error(w, "ticket fetch failed", http.StatusBadGateway)
			return
		}
		reqLog.WithField("tickets", len(tickets)).Info("tickets retrieved")

		result := metrics.Aggregate(tickets, metrics.DefaultClassification())
		reviewPeriod := formatPeriod(req.StartDate, req.EndDate)

		var recs []types.Recommendation
		if req.UseAI {
			recs, err = recommend.Generate(r.Context(), recommend.Input{
				ClientName:      req.ClientName,
				ReviewPeriod:    reviewPeriod,
				Metrics:         result.Tokens(),
				TicketSummaries: sampleSummaries(tickets, req.SampleSize),
				Count:           req.NumRecs,
			})
			if err != nil {
				reqLog.WithError(err).Error("recommendation generation failed")
				http.Error(w, "recommendation generation failed", http.StatusBadGateway)
				return
			}
		} else {
			recs = recommend.Manual(req.Recommendations)
		}

		contextTokens := map[string]string{
			"{{CLIENT_NAME}}":      req.ClientName,
			"{{REVIEW_PERIOD}}":    reviewPeriod,
			"{{MSP_CONTACT_INFO}}": req.MSPContact,
		}
		for k, v := range recommend.Replacements(recs) {
			contextTokens[k] = v
		}

		out, err := composer.Compose(templatePath, contextTokens, tickets)
		if err != nil {
			reqLog.WithError(err).Error("composition failed")
			http.Error(w, "composition failed", http.StatusInternalServerError)
			return
		}

		reqLog.WithField("duration_ms", time.Since(start).Milliseconds()).Info("deck generated")
		w.Header().Set("Content-Type", pptxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", deckFilename(req.ClientName, req.StartDate)))
		w.Write(out)
	})

	addr := fmt.Sprintf(":%s", envOr("PORT", "8080"))
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}

// fetchTickets prefers a live Halo connection and falls back to the xlsx
// export when one is configured.
func fetchTickets(r *http.Request, req generateRequest, cfg halo.Config, datasetPath string) ([]types.Ticket, error) {
	if cfg.Configured() {
		client := halo.New(cfg)
		pageSize := req.SampleSize
		if pageSize <= 0 {
			pageSize = 500
		}
		return client.GetTickets(r.Context(), req.ClientID, req.StartDate, req.EndDate, pageSize)
	}
	if datasetPath != "" {
		return dataset.Load(datasetPath)
	}
	return nil, fmt.Errorf("no ticket source configured (set HALO_HOST or DATASET_PATH)")
}

func sampleSummaries(tickets []types.Ticket, limit int) []string {
	if limit <= 0 {
		limit = 100
	}
	var out []string
	for _, t := range tickets {
		if t.Summary == "" {
			continue
		}
		out = append(out, t.Summary)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func formatPeriod(start, end string) string {
	const in, out = "2006-01-02", "January 2, 2006"
	s, errS := time.Parse(in, start)
	e, errE := time.Parse(in, end)
	if errS != nil || errE != nil {
		return start + " to " + end
	}
	return s.Format(out) + " to " + e.Format(out)
}

func deckFilename(clientName, startDate string) string {
	safe := ""
	for _, r := range clientName {
		switch {
		case r == ' ':
			safe += "_"
		case r == '/':
			safe += "-"
		default:
			safe += string(r)
		}
	}
	stamp := startDate
	if t, err := time.Parse("2006-01-02", startDate); err == nil {
		stamp = t.Format("20060102")
	}
	return fmt.Sprintf("%s_QBR_%s.pptx", safe, stamp)
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
