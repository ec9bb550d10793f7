package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rxcost/rxcost/internal/engine"
	"github.com/rxcost/rxcost/internal/model"
	"github.com/rxcost/rxcost/internal/service"
)

type handler struct {
	svc engine.Service
}

// View types pin the JSON field order and names at the boundary.

type productView struct {
	TradeName      string `json:"trade_name"`
	Ingredient     string `json:"ingredient"`
	Strength       string `json:"strength"`
	DosageForm     string `json:"dosage_form"`
	Route          string `json:"route"`
	Applicant      string `json:"applicant"`
	TECode         string `json:"te_code"`
	ApplType       string `json:"appl_type"`
	ApplNo         string `json:"appl_no"`
	ProductNo      string `json:"product_no"`
	Classification string `json:"classification"`
}

type scoredProductView struct {
	Product       productView `json:"product"`
	Score         float64     `json:"score"`
	Stage         string      `json:"stage"`
	StrengthMatch bool        `json:"strength_match"`
}

type matchView struct {
	Best           *scoredProductView  `json:"best"`
	Alternates     []scoredProductView `json:"alternates"`
	Classification string              `json:"classification"`
	LowConfidence  bool                `json:"low_confidence"`
}

type costRecordView struct {
	BrandName       string  `json:"brand_name"`
	GenericName     string  `json:"generic_name"`
	Manufacturer    string  `json:"manufacturer"`
	TotManufacturer int     `json:"tot_mftr"`
	Year            int     `json:"year"`
	AvgSpendPerDose float64 `json:"avg_spend_per_dose"`
	OutlierFlag     bool    `json:"outlier_flag"`
}

type equivalentCostView struct {
	Product      productView      `json:"product"`
	FallbackName string           `json:"fallback_name,omitempty"`
	Records      []costRecordView `json:"records"`
}

type cheapestView struct {
	Match       matchView            `json:"match"`
	Year        int                  `json:"year"`
	Equivalents []equivalentCostView `json:"equivalents"`
}

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func toProductView(p model.ProductIdentity) productView {
	return productView{
		TradeName:      p.TradeName,
		Ingredient:     p.Ingredient,
		Strength:       p.Strength,
		DosageForm:     p.DosageForm,
		Route:          p.Route,
		Applicant:      p.Applicant,
		TECode:         p.TECode,
		ApplType:       p.ApplType,
		ApplNo:         p.ApplNo,
		ProductNo:      p.ProductNo,
		Classification: string(p.Classification()),
	}
}

func toScoredView(sp model.ScoredProduct) scoredProductView {
	return scoredProductView{
		Product:       toProductView(sp.Product),
		Score:         sp.Score,
		Stage:         string(sp.Stage),
		StrengthMatch: sp.StrengthMatch,
	}
}

func toMatchView(m *model.MatchResult) matchView {
	view := matchView{
		Alternates:     make([]scoredProductView, 0, len(m.Alternates)),
		Classification: string(m.Classification),
		LowConfidence:  m.LowConfidence,
	}
	if m.Best.Product.TradeName != "" || m.Best.Score > 0 {
		best := toScoredView(m.Best)
		view.Best = &best
	}
	for _, alt := range m.Alternates {
		view.Alternates = append(view.Alternates, toScoredView(alt))
	}
	return view
}

func toCostViews(records model.RankedCostList) []costRecordView {
	views := make([]costRecordView, 0, len(records))
	for _, r := range records {
		views = append(views, costRecordView{
			BrandName:       r.BrandName,
			GenericName:     r.GenericName,
			Manufacturer:    r.Manufacturer,
			TotManufacturer: r.TotManufacturer,
			Year:            r.Year,
			AvgSpendPerDose: r.AvgSpendPerDose,
			OutlierFlag:     r.OutlierFlag,
		})
	}
	return views
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

func respondError(w http.ResponseWriter, code int, kind service.Kind, message string) {
	respondJSON(w, code, errorResponse{Kind: string(kind), Message: message, Code: code})
}

// respondServiceError maps engine errors to the structured boundary payload.
func respondServiceError(w http.ResponseWriter, err error) {
	kind := service.Classify(err)
	code := http.StatusInternalServerError
	switch kind {
	case service.KindNotFound, service.KindEmptyDataset:
		code = http.StatusNotFound
	case service.KindStorageUnavailable:
		code = http.StatusServiceUnavailable
	case service.KindInvalidArgument:
		code = http.StatusBadRequest
	}
	slog.Error("request failed", "kind", kind, "error", err)
	respondError(w, code, kind, err.Error())
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{"status": "ok"}
	if year, err := h.svc.LatestYear(r.Context()); err == nil {
		payload["latest_year"] = year
	}
	respondJSON(w, http.StatusOK, payload)
}

func (h *handler) match(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, service.KindInvalidArgument, "query parameter 'name' is required")
		return
	}

	result, err := h.svc.MatchIdentity(r.Context(), name, r.URL.Query().Get("strength"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toMatchView(result))
}

func (h *handler) equivalents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ingredient := q.Get("ingredient")
	if ingredient == "" {
		respondError(w, http.StatusBadRequest, service.KindInvalidArgument, "query parameter 'ingredient' is required")
		return
	}

	products, err := h.svc.FindEquivalents(r.Context(), ingredient, q.Get("strength"), q.Get("form"), q.Get("route"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, toProductView(p))
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *handler) generics(w http.ResponseWriter, r *http.Request) {
	ingredient := r.URL.Query().Get("ingredient")
	if ingredient == "" {
		respondError(w, http.StatusBadRequest, service.KindInvalidArgument, "query parameter 'ingredient' is required")
		return
	}

	candidates := h.svc.GenericCandidates(ingredient)
	if candidates == nil {
		candidates = []string{}
	}
	respondJSON(w, http.StatusOK, candidates)
}

func (h *handler) costs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, service.KindInvalidArgument, "query parameter 'name' is required")
		return
	}

	year := 0
	if raw := q.Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, service.KindInvalidArgument, "query parameter 'year' must be an integer")
			return
		}
		year = parsed
	}

	records, err := h.svc.LookupCosts(r.Context(), name, year)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toCostViews(records))
}

func (h *handler) latestYear(w http.ResponseWriter, r *http.Request) {
	year, err := h.svc.LatestYear(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"latest_year": year})
}

func (h *handler) cheapest(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, service.KindInvalidArgument, "query parameter 'name' is required")
		return
	}

	comparison, err := h.svc.CheapestEquivalents(r.Context(), name, r.URL.Query().Get("strength"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	view := cheapestView{
		Match:       toMatchView(comparison.Match),
		Year:        comparison.Year,
		Equivalents: make([]equivalentCostView, 0, len(comparison.Equivalents)),
	}
	for _, eq := range comparison.Equivalents {
		view.Equivalents = append(view.Equivalents, equivalentCostView{
			Product:      toProductView(eq.Product),
			FallbackName: eq.FallbackName,
			Records:      toCostViews(eq.Records),
		})
	}
	respondJSON(w, http.StatusOK, view)
}
