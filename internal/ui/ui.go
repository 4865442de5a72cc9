// Package ui serves the interactive churn prediction form.
package ui

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"churn-detection/internal/common"
	"churn-detection/internal/customer"
	"churn-detection/internal/inference"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var templateFS embed.FS

// modelLabels is the selector order and display names.
var modelLabels = []struct{ ID, Label string }{
	{common.ModelForest, "Random Forest"},
	{common.ModelXGBoost, "XGBoost"},
}

// formDefaults are the values shown on first load.
var formDefaults = url.Values{
	customer.ColCreditScore:     {"300"},
	customer.ColGeography:       {"France"},
	customer.ColGender:          {"Male"},
	customer.ColAge:             {"18"},
	customer.ColTenure:          {"0"},
	customer.ColBalance:         {"0.00"},
	customer.ColNumOfProducts:   {"1"},
	customer.ColHasCrCard:       {"0"},
	customer.ColIsActiveMember:  {"0"},
	customer.ColEstimatedSalary: {"0.00"},
	"model":                     {common.ModelForest},
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

type modelOption struct {
	ID       string
	Label    string
	Selected bool
}

type formValues struct {
	CreditScore     string
	Age             string
	Tenure          string
	Balance         string
	NumOfProducts   string
	EstimatedSalary string
}

type resultView struct {
	Label       string
	Probability string
	Detail      string
	ModelLabel  string
	ServedBy    string
	Aliased     bool
}

type pageData struct {
	AppName        string
	Version        string
	Models         []modelOption
	Geographies    []option
	Genders        []option
	HasCrCard      []option
	IsActiveMember []option
	Form           formValues
	Result         *resultView
	Error          string
}

// Handler renders the form and runs predictions in process.
type Handler struct {
	appName string
	version string
	svc     *inference.Service
	tmpl    *template.Template
}

func New(appName, version string, svc *inference.Service) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("inference service is required")
	}
	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Handler{appName: appName, version: version, svc: svc, tmpl: tmpl}, nil
}

// Routes returns the form's router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)

	r.Get("/", h.handleForm)
	r.Post("/", h.handleSubmit)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func (h *Handler) handleForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, h.page(formDefaults))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, common.MaxRequestBodySize)
	if err := r.ParseForm(); err != nil {
		data := h.page(formDefaults)
		data.Error = err.Error()
		h.render(w, r, http.StatusBadRequest, data)
		return
	}

	values := r.PostForm
	data := h.page(values)

	rec, err := customer.ParseForm(values)
	if err != nil {
		data.Error = err.Error()
		h.render(w, r, http.StatusUnprocessableEntity, data)
		return
	}

	modelID := values.Get("model")
	out, err := h.svc.Predict(r.Context(), modelID, rec)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, inference.ErrUnknownModel) {
			status = http.StatusBadRequest
		}
		hlog.FromRequest(r).Error().Err(err).Str("model", modelID).Msg("form prediction failed")
		data.Error = err.Error()
		h.render(w, r, status, data)
		return
	}

	data.Result = newResultView(out)
	h.render(w, r, http.StatusOK, data)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "index.html", data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("render form")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// page builds the template data, keeping submitted values sticky.
func (h *Handler) page(values url.Values) pageData {
	get := func(key string) string {
		if v, ok := values[key]; ok && len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return formDefaults.Get(key)
	}

	data := pageData{
		AppName:        h.appName,
		Version:        h.version,
		Geographies:    options(customer.Geographies, get(customer.ColGeography), nil),
		Genders:        options(customer.Genders, get(customer.ColGender), nil),
		HasCrCard:      options([]string{"0", "1"}, get(customer.ColHasCrCard), yesNo),
		IsActiveMember: options([]string{"0", "1"}, get(customer.ColIsActiveMember), yesNo),
		Form: formValues{
			CreditScore:     get(customer.ColCreditScore),
			Age:             get(customer.ColAge),
			Tenure:          get(customer.ColTenure),
			Balance:         get(customer.ColBalance),
			NumOfProducts:   get(customer.ColNumOfProducts),
			EstimatedSalary: get(customer.ColEstimatedSalary),
		},
	}

	selected := get("model")
	for _, m := range modelLabels {
		data.Models = append(data.Models, modelOption{ID: m.ID, Label: m.Label, Selected: m.ID == selected})
	}
	return data
}

func yesNo(v string) string {
	if v == "1" {
		return "Yes"
	}
	return "No"
}

func options(values []string, selected string, label func(string) string) []option {
	out := make([]option, 0, len(values))
	for _, v := range values {
		l := v
		if label != nil {
			l = label(v)
		}
		out = append(out, option{Value: v, Label: l, Selected: v == selected})
	}
	return out
}

func modelLabel(id string) string {
	for _, m := range modelLabels {
		if m.ID == id {
			return m.Label
		}
	}
	return id
}

func newResultView(out inference.Outcome) *resultView {
	label := "No Churn"
	if out.ChurnPrediction {
		label = "Churn"
	}

	detail, err := json.MarshalIndent(out.Result, "", "  ")
	if err != nil {
		detail = []byte(err.Error())
	}

	return &resultView{
		Label:       label,
		Probability: fmt.Sprintf("%.2f%%", out.ChurnProbability*100),
		Detail:      string(detail),
		ModelLabel:  modelLabel(out.Model),
		ServedBy:    modelLabel(out.ServedBy),
		Aliased:     out.Model != out.ServedBy,
	}
}
