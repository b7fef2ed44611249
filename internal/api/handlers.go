package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mpop-24/vantageflow/internal/report"
	"github.com/mpop-24/vantageflow/internal/scrape"
	"github.com/mpop-24/vantageflow/internal/track"
)

// commandResponse is the immediate reply body for a slash command.
type commandResponse struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}

func ephemeral(text string) commandResponse {
	return commandResponse{ResponseType: "ephemeral", Text: text}
}

func inChannel(text string) commandResponse {
	return commandResponse{ResponseType: "in_channel", Text: text}
}

// pricesCommand answers the price comparison slash command from stored
// observations; it never fetches live.
func (s *Server) pricesCommand(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form payload")
		return
	}
	query := strings.TrimSpace(r.PostFormValue("text"))
	teamID := r.PostFormValue("team_id")

	products, err := s.store.ListProducts(r.Context(), teamID)
	if err != nil {
		s.logger.Error("list products failed", zap.Error(err))
		writeJSON(w, http.StatusOK, ephemeral("Something went wrong looking up your products. Try again shortly."))
		return
	}
	if len(products) == 0 {
		writeJSON(w, http.StatusOK, ephemeral("No products are being tracked yet."))
		return
	}

	if query == "" {
		writeJSON(w, http.StatusOK, ephemeral(productIndex(products)))
		return
	}

	product, ok := matchProduct(products, query)
	if !ok {
		writeJSON(w, http.StatusOK, ephemeral("No tracked product matches \""+query+"\".\n"+productIndex(products)))
		return
	}

	competitors, err := s.store.ListCompetitors(r.Context(), product.ID)
	if err != nil {
		s.logger.Error("list competitors failed",
			zap.String("product_id", product.ID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, ephemeral("Something went wrong loading competitors. Try again shortly."))
		return
	}

	comparison := report.BuildComparison(product, competitors)
	writeJSON(w, http.StatusOK, inChannel(comparison.Markdown()))
}

// auditCommand runs a live check for one entity, synchronously.
func (s *Server) auditCommand(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form payload")
		return
	}
	query := strings.TrimSpace(r.PostFormValue("text"))
	if query == "" {
		writeJSON(w, http.StatusOK, ephemeral("Usage: /audit <product or competitor name>"))
		return
	}

	target, ok := s.findAuditTarget(r.Context(), r.PostFormValue("team_id"), query)
	if !ok {
		writeJSON(w, http.StatusOK, ephemeral("Nothing tracked matches \""+query+"\"."))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 50*time.Second)
	defer cancel()
	snap, err := s.scraper.Snapshot(ctx, target.url)
	if err != nil {
		s.logger.Warn("audit fetch failed",
			zap.String("url", target.url),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, ephemeral("Could not reach "+target.name+" right now. No data yet."))
		return
	}
	s.recordAudit(ctx, target, snap)
	writeJSON(w, http.StatusOK, inChannel(report.AuditSummary(target.name, snap)))
}

// auditTarget identifies the entity a live audit resolved to. Exactly one
// of productID and competitorID is set.
type auditTarget struct {
	name         string
	url          string
	productID    string
	competitorID string
}

func (s *Server) findAuditTarget(ctx context.Context, teamID, query string) (auditTarget, bool) {
	products, err := s.store.ListProducts(ctx, teamID)
	if err != nil {
		return auditTarget{}, false
	}
	if product, found := matchProduct(products, query); found {
		return auditTarget{name: product.Name, url: product.URL, productID: product.ID}, true
	}
	for _, product := range products {
		competitors, err := s.store.ListCompetitors(ctx, product.ID)
		if err != nil {
			continue
		}
		for _, competitor := range competitors {
			if nameMatches(competitor.Name, query) {
				return auditTarget{name: competitor.Name, url: competitor.URL, competitorID: competitor.ID}, true
			}
		}
	}
	return auditTarget{}, false
}

// recordAudit persists the freshly observed price so a manual audit leaves
// the stored state current. Persistence failures do not fail the audit.
func (s *Server) recordAudit(ctx context.Context, target auditTarget, snap scrape.Snapshot) {
	if snap.Price == nil {
		return
	}
	var err error
	switch {
	case target.productID != "":
		err = s.store.UpdateProductPrice(ctx, target.productID, *snap.Price)
	case target.competitorID != "":
		err = s.store.UpdateCompetitor(ctx, target.competitorID, snap.Price, snap.FetchedAt)
	}
	if err != nil {
		s.logger.Warn("audit persist failed",
			zap.String("name", target.name),
			zap.Error(err),
		)
	}
}

// events answers Slack's event callbacks. Only the URL verification
// handshake needs a body; everything else is acknowledged.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSignedBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	var envelope struct {
		Type      string `json:"type"`
		Challenge string `json:"challenge"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if envelope.Type == "url_verification" {
		writeJSON(w, http.StatusOK, map[string]string{"challenge": envelope.Challenge})
		return
	}
	w.WriteHeader(http.StatusOK)
}

func matchProduct(products []track.Product, query string) (track.Product, bool) {
	for _, product := range products {
		if nameMatches(product.Name, query) {
			return product, true
		}
	}
	// Fall back to substring matching so "/prices chair" finds "H1 Pro Chair".
	lowered := strings.ToLower(query)
	for _, product := range products {
		if strings.Contains(strings.ToLower(product.Name), lowered) {
			return product, true
		}
	}
	return track.Product{}, false
}

func nameMatches(name, query string) bool {
	return strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(query))
}

func productIndex(products []track.Product) string {
	var b strings.Builder
	b.WriteString("Tracked products:\n")
	for _, product := range products {
		b.WriteString("• " + product.Name + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
