package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"dairyledger/internal/domain"
	"dairyledger/internal/service"
	"dairyledger/internal/store"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string) *API {
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)

	mux.HandleFunc("/api/v1/branches", a.requireAuth(a.handleBranches, "operator", "admin"))
	mux.HandleFunc("/api/v1/branches/", a.requireAuth(a.handleBranchActions, "operator", "admin"))
	mux.HandleFunc("/api/v1/societies", a.requireAuth(a.handleSocieties, "operator", "admin"))
	mux.HandleFunc("/api/v1/societies/", a.requireAuth(a.handleSocietyActions, "operator", "admin"))
	mux.HandleFunc("/api/v1/customers", a.requireAuth(a.handleCustomers, "operator", "admin"))
	mux.HandleFunc("/api/v1/customers/", a.requireAuth(a.handleCustomerActions, "operator", "admin"))
	mux.HandleFunc("/api/v1/milk-rates", a.requireAuth(a.handleMilkRates, "operator", "admin"))
	mux.HandleFunc("/api/v1/sales", a.requireAuth(a.handleSales, "operator", "admin"))
	mux.HandleFunc("/api/v1/bills", a.requireAuth(a.handleBills, "operator", "admin"))
	mux.HandleFunc("/api/v1/payments", a.requireAuth(a.handlePayments, "operator", "admin"))
	mux.HandleFunc("/api/v1/invoices/message", a.requireAuth(a.handleInvoiceMessage, "operator", "admin"))
	mux.HandleFunc("/api/v1/invoices/printable", a.requireAuth(a.handleInvoicePrintable, "operator", "admin"))
	mux.HandleFunc("/api/v1/invoices/csv", a.requireAuth(a.handleInvoiceCSV, "operator", "admin"))
	mux.HandleFunc("/api/v1/users/approved", a.requireAuth(a.handleApprovedUsers, "admin"))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

// writeServiceError maps sentinel errors from the store and service layers
// onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusUnprocessableEntity
	switch {
	case errors.Is(err, store.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrUnavailable):
		status = http.StatusServiceUnavailable
	case strings.Contains(strings.ToLower(err.Error()), "admin role required"):
		status = http.StatusForbidden
	}
	writeError(w, status, err)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleBranches(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		branches, err := a.service.ListBranches(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"branches": branches})
	case http.MethodPost:
		var req domain.BranchCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		branch, err := a.service.CreateBranch(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"branch": branch})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleBranchActions(w http.ResponseWriter, r *http.Request) {
	ids := pathSegments(r.URL.Path, "/api/v1/branches/", 1)
	if ids == nil {
		writeError(w, http.StatusBadRequest, errors.New("branch id required"))
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var req domain.RenameRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		branch, err := a.service.RenameBranch(r.Context(), ids[0], req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"branch": branch})
	case http.MethodDelete:
		if err := a.service.DeleteBranch(r.Context(), ids[0]); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": ids[0]})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleSocieties(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		branchID := strings.TrimSpace(r.URL.Query().Get("branch_id"))
		if branchID == "" {
			writeError(w, http.StatusBadRequest, errors.New("branch_id query parameter required"))
			return
		}
		societies, err := a.service.ListSocieties(r.Context(), branchID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"societies": societies})
	case http.MethodPost:
		var req domain.SocietyCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		society, err := a.service.CreateSociety(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"society": society})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleSocietyActions(w http.ResponseWriter, r *http.Request) {
	ids := pathSegments(r.URL.Path, "/api/v1/societies/", 2)
	if ids == nil {
		writeError(w, http.StatusBadRequest, errors.New("branch and society ids required"))
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var req domain.RenameRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		society, err := a.service.RenameSociety(r.Context(), ids[0], ids[1], req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"society": society})
	case http.MethodDelete:
		if err := a.service.DeleteSociety(r.Context(), ids[0], ids[1]); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": ids[1]})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCustomers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		branchID := strings.TrimSpace(query.Get("branch_id"))
		societyID := strings.TrimSpace(query.Get("society_id"))
		if branchID == "" || societyID == "" {
			writeError(w, http.StatusBadRequest, errors.New("branch_id and society_id query parameters required"))
			return
		}
		customers, err := a.service.ListCustomers(r.Context(), branchID, societyID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
	case http.MethodPost:
		var req domain.CustomerCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		customer, err := a.service.CreateCustomer(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"customer": customer})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCustomerActions(w http.ResponseWriter, r *http.Request) {
	ids := pathSegments(r.URL.Path, "/api/v1/customers/", 3)
	if ids == nil {
		writeError(w, http.StatusBadRequest, errors.New("branch, society and customer ids required"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		customer, err := a.service.GetCustomer(r.Context(), ids[0], ids[1], ids[2])
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"customer": customer})
	case http.MethodPatch:
		var req domain.CustomerUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		customer, err := a.service.UpdateCustomer(r.Context(), ids[0], ids[1], ids[2], req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"customer": customer})
	case http.MethodDelete:
		if err := a.service.DeleteCustomer(r.Context(), ids[0], ids[1], ids[2]); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": ids[2]})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleMilkRates(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rates, err := a.service.GetMilkRates(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"milk_rates": rates})
	case http.MethodPut:
		actor, ok := service.ActorFromContext(r.Context())
		if !ok || actor.Role != domain.RoleAdmin {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}
		var req domain.MilkRates
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		rates, err := a.service.SetMilkRates(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"milk_rates": rates})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		customerID := strings.TrimSpace(query.Get("customer_id"))
		month := strings.TrimSpace(query.Get("month"))
		if customerID == "" || month == "" {
			writeError(w, http.StatusBadRequest, errors.New("customer_id and month query parameters required"))
			return
		}
		sales, err := a.service.ListSales(r.Context(), customerID, month)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sales": sales})
	case http.MethodPost:
		var req domain.SaleUpsertRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		sale, err := a.service.UpsertSale(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"sale": sale})
	case http.MethodDelete:
		query := r.URL.Query()
		customerID := strings.TrimSpace(query.Get("customer_id"))
		date := strings.TrimSpace(query.Get("date"))
		if customerID == "" || date == "" {
			writeError(w, http.StatusBadRequest, errors.New("customer_id and date query parameters required"))
			return
		}
		if err := a.service.DeleteSale(r.Context(), customerID, date); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": date})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleBills(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	query := r.URL.Query()
	customerID := strings.TrimSpace(query.Get("customer_id"))
	month := strings.TrimSpace(query.Get("month"))
	if customerID == "" || month == "" {
		writeError(w, http.StatusBadRequest, errors.New("customer_id and month query parameters required"))
		return
	}

	report, err := a.service.FetchBill(r.Context(), customerID, month)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bill": report})
}

func (a *API) handlePayments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		customerID := strings.TrimSpace(query.Get("customer_id"))
		month := strings.TrimSpace(query.Get("month"))
		if customerID == "" || month == "" {
			writeError(w, http.StatusBadRequest, errors.New("customer_id and month query parameters required"))
			return
		}
		record, err := a.service.GetPayment(r.Context(), customerID, month)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"payment": record})
	case http.MethodPost:
		var req domain.PaymentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		record, err := a.service.RecordPayment(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"payment": record})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) invoiceFromRequest(w http.ResponseWriter, r *http.Request) (domain.Invoice, bool) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return domain.Invoice{}, false
	}
	var req domain.InvoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return domain.Invoice{}, false
	}
	invoice, err := a.service.GenerateInvoice(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return domain.Invoice{}, false
	}
	return invoice, true
}

func (a *API) handleInvoiceMessage(w http.ResponseWriter, r *http.Request) {
	invoice, ok := a.invoiceFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoice": invoice})
}

func (a *API) handleInvoicePrintable(w http.ResponseWriter, r *http.Request) {
	invoice, ok := a.invoiceFromRequest(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(invoiceToPrintableHTML(invoice)))
}

func (a *API) handleInvoiceCSV(w http.ResponseWriter, r *http.Request) {
	invoice, ok := a.invoiceFromRequest(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=invoice_%s_%s.csv", invoice.Customer.ID, invoice.Month))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(invoiceToCSV(invoice)))
}

func (a *API) handleApprovedUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		users, err := a.auth.ListApprovedUsers(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": users})
	case http.MethodPost:
		var req domain.ApprovedUserCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		user, err := a.auth.GrantAccess(r.Context(), req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"user": user})
	case http.MethodDelete:
		email := strings.TrimSpace(r.URL.Query().Get("email"))
		if email == "" {
			writeError(w, http.StatusBadRequest, errors.New("email query parameter required"))
			return
		}
		if err := a.auth.RevokeAccess(r.Context(), email); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"revoked": email})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

// pathSegments splits the remainder of the URL after prefix and returns it
// only when it has exactly want non-empty segments.
func pathSegments(urlPath string, prefix string, want int) []string {
	rest := strings.Trim(strings.TrimPrefix(urlPath, prefix), "/")
	if rest == "" {
		return nil
	}
	segments := strings.Split(rest, "/")
	if len(segments) != want {
		return nil
	}
	for _, segment := range segments {
		if strings.TrimSpace(segment) == "" {
			return nil
		}
	}
	return segments
}

func invoiceToCSV(invoice domain.Invoice) string {
	lines := []string{
		"section,key,value",
		fmt.Sprintf("summary,customer,%s", invoice.Customer.Name),
		fmt.Sprintf("summary,phone,%s", invoice.Customer.Phone),
		fmt.Sprintf("summary,month,%s", invoice.Month),
		fmt.Sprintf("summary,monthly_sales_sum,%s", invoice.Report.MonthlySalesSum.StringFixed(2)),
		fmt.Sprintf("summary,paid_amount,%s", invoice.Report.PaidAmount.StringFixed(2)),
		fmt.Sprintf("summary,pending_balance,%s", invoice.Report.PendingBalance.StringFixed(2)),
		fmt.Sprintf("summary,advance_balance,%s", invoice.Report.AdvanceBalance.StringFixed(2)),
		fmt.Sprintf("summary,total_due,%s", invoice.Report.TotalDue.StringFixed(2)),
	}
	for _, sale := range invoice.Report.Sales {
		lines = append(lines, fmt.Sprintf("sale,%s,%s L @ %s", sale.Date, sale.Quantity.String(), sale.Amount.StringFixed(2)))
	}
	return strings.Join(lines, "\n") + "\n"
}

// invoiceHTMLTmpl renders the printable monthly invoice. User-controlled
// fields are auto-escaped by html/template.
var invoiceHTMLTmpl = template.Must(template.New("invoice").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Invoice {{.Customer.Name}} {{.Month}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    h2, h3 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>Invoice {{.Month}}</h2>
  <p>Customer: {{.Customer.Name}} ({{.Customer.Phone}})</p>
  <p>Milk Type: {{.Customer.MilkType}}</p>

  <h3>Milk Sales</h3>
  <table>
    <thead><tr><th>Date</th><th>Liters</th><th>Amount</th></tr></thead>
    <tbody>{{range .Report.Sales}}<tr><td>{{.Date}}</td><td style="text-align:right;">{{.Quantity}}</td><td style="text-align:right;">{{.Amount}}</td></tr>{{end}}</tbody>
  </table>

  <h3>Summary</h3>
  <table>
    <tbody>
      <tr><td>Total Sales</td><td style="text-align:right;">{{.Report.MonthlySalesSum}}</td></tr>
      <tr><td>Paid This Month</td><td style="text-align:right;">{{.Report.PaidAmount}}</td></tr>
      <tr><td>Pending Balance</td><td style="text-align:right;">{{.Report.PendingBalance}}</td></tr>
      <tr><td>Advance Balance</td><td style="text-align:right;">{{.Report.AdvanceBalance}}</td></tr>
      <tr><td><strong>Total Amount to be Paid</strong></td><td style="text-align:right;"><strong>{{.Report.TotalDue}}</strong></td></tr>
    </tbody>
  </table>
</body>
</html>
`))

func invoiceToPrintableHTML(invoice domain.Invoice) string {
	var buf bytes.Buffer
	if err := invoiceHTMLTmpl.Execute(&buf, invoice); err != nil {
		return "<!doctype html><html><body><p>Invoice rendering error.</p></body></html>"
	}
	return buf.String()
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 4xx messages are user-facing; 5xx messages are replaced so driver and
	// SQL details never reach the client.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
