package main

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/asharma/debt-tracker/auth"
	"github.com/asharma/debt-tracker/config"
	"github.com/asharma/debt-tracker/debt"
	"github.com/asharma/debt-tracker/notify"
	"github.com/asharma/debt-tracker/tracker"
	"github.com/asharma/debt-tracker/user"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		printErrorAndExit("loading config", err)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		printErrorAndExit("database connection", err)
	}
	err = db.Ping()
	if err != nil {
		printErrorAndExit("pinging database", err)
	}

	sinks := []notify.Sink{notify.NewSQLSink(db)}
	if brokers := cfg.Events.KafkaBrokers(); len(brokers) > 0 {
		sinks = append(sinks, notify.NewKafkaSink(brokers, cfg.Events.KafkaTopic))
	}
	worker := notify.NewWorker(cfg.Events.BufferSize, sinks...)
	worker.Start()
	defer worker.Shutdown()

	reval := notify.NewRevalidator()
	hub := notify.NewHub(worker, reval)

	userRepo := user.NewRepository(db)
	sessionRepo := auth.NewSessionRepository(db, cfg.Auth.SessionTTL)
	debtRepo := debt.NewRepository(db)
	ledger := debt.NewService(debtRepo, userRepo, hub)

	var tokens *auth.TokenManager
	if cfg.Auth.JWTSecret != "" {
		tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTTTL)
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(auth.Middleware(sessionRepo, tokens))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		hub.Record("health_request", map[string]string{
			"message":     "ok",
			"http_status": strconv.Itoa(http.StatusOK),
		})
		w.Write([]byte("ok"))
	})

	router.Post("/user/register", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form data", http.StatusBadRequest)
			return
		}

		registered, err := userRepo.Register(ctx, r.FormValue("name"), r.FormValue("email"), r.FormValue("password"))
		if err != nil {
			switch err {
			case user.ErrEmailExists:
				http.Error(w, err.Error(), http.StatusConflict)
			case user.ErrBlankPassword, user.ErrInvalidEmail:
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				slog.Error("failed to register user", "error", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		sess, err := sessionRepo.Create(ctx, registered.ID)
		if err != nil {
			slog.Error("failed to create session", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		setSessionCookie(w, sess)

		hub.Record("user.registered", map[string]string{
			"user_id": registered.ID.String(),
			"email":   registered.Email,
		})

		writeJSON(w, http.StatusCreated, map[string]any{"user": registered})
	})

	router.Post("/user/login", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form data", http.StatusBadRequest)
			return
		}

		userdb, err := userRepo.GetByEmail(ctx, r.FormValue("email"))
		if err != nil {
			slog.Error("failed to fetch user", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if userdb == nil || userRepo.VerifyPassword(userdb.PasswordHash, r.FormValue("password")) != nil {
			http.Error(w, "invalid email or password", http.StatusUnauthorized)
			return
		}

		sess, err := sessionRepo.Create(ctx, userdb.ID)
		if err != nil {
			slog.Error("failed to create session", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		setSessionCookie(w, sess)

		response := map[string]any{"user": userdb}
		if tokens != nil {
			token, err := tokens.Issue(userdb.ID.String())
			if err != nil {
				slog.Error("failed to issue token", "error", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			response["token"] = token
		}

		hub.Record("user.logged_in", map[string]string{
			"user_id":    userdb.ID.String(),
			"session_id": sess.ID.String(),
		})

		writeJSON(w, http.StatusOK, response)
	})

	// Cached debts page: recomputed only when a mutation marked it stale.
	var pageMu sync.Mutex
	pageCache := make(map[string][]byte)

	// Protected routes - require authentication
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth("/"))

		r.Get("/debts", func(w http.ResponseWriter, r *http.Request) {
			identity, _ := auth.CallerIdentity(r.Context())

			pageMu.Lock()
			if reval.Consume(debt.ViewPath) {
				pageCache = make(map[string][]byte)
			}
			cached, ok := pageCache[identity.Subject]
			pageMu.Unlock()

			if ok {
				w.Header().Set("Content-Type", "application/json")
				w.Write(cached)
				return
			}

			state := tracker.Seed(ledger.GetDebts(r.Context()))
			body, err := json.Marshal(map[string]any{
				"debts":   state.Debts(),
				"summary": state.Summary(),
			})
			if err != nil {
				slog.Error("failed to encode debts", "error", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			pageMu.Lock()
			pageCache[identity.Subject] = body
			pageMu.Unlock()

			w.Header().Set("Content-Type", "application/json")
			w.Write(body)
		})

		r.Post("/debts", func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				http.Error(w, "invalid form data", http.StatusBadRequest)
				return
			}
			result := ledger.CreateDebt(r.Context(), debtInputFromForm(r))
			writeResult(w, result, http.StatusCreated)
		})

		r.Post("/debts/{debtID}", func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				http.Error(w, "invalid form data", http.StatusBadRequest)
				return
			}
			result := ledger.UpdateDebt(r.Context(), chi.URLParam(r, "debtID"), debtInputFromForm(r))
			writeResult(w, result, http.StatusOK)
		})

		r.Post("/debts/{debtID}/delete", func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				http.Error(w, "invalid form data", http.StatusBadRequest)
				return
			}
			// destructive action needs the explicit confirmation field
			if r.FormValue("confirm") != "true" {
				writeJSON(w, http.StatusBadRequest, debt.Result{Error: "confirmation required"})
				return
			}
			result := ledger.DeleteDebt(r.Context(), chi.URLParam(r, "debtID"))
			writeResult(w, result, http.StatusOK)
		})

		r.Post("/debts/{debtID}/payments", func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				http.Error(w, "invalid form data", http.StatusBadRequest)
				return
			}
			result := ledger.CreateDebtPayment(r.Context(), debt.PaymentInput{
				DebtID:      chi.URLParam(r, "debtID"),
				Amount:      r.FormValue("amount"),
				PaymentDate: r.FormValue("paymentDate"),
				Description: r.FormValue("description"),
			})
			writeResult(w, result, http.StatusCreated)
		})

		r.Get("/debts/{debtID}/payments", func(w http.ResponseWriter, r *http.Request) {
			payments := ledger.GetDebtPayments(r.Context(), chi.URLParam(r, "debtID"))
			writeJSON(w, http.StatusOK, payments)
		})

		r.Post("/user/logout", func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.CookieName)
			if err == nil {
				sessionRepo.Delete(r.Context(), cookie.Value)
			}

			http.SetCookie(w, &http.Cookie{
				Name:   auth.CookieName,
				Value:  "",
				Path:   "/",
				MaxAge: -1,
			})

			http.Redirect(w, r, "/", http.StatusSeeOther)
		})
	})

	slog.Info("server starting", "addr", cfg.Server.Addr())
	http.ListenAndServe(cfg.Server.Addr(), router)
}

func printErrorAndExit(msg string, e error) {
	slog.Error(msg, "error", e)
	os.Exit(1)
}

func debtInputFromForm(r *http.Request) debt.DebtInput {
	return debt.DebtInput{
		Name:           r.FormValue("name"),
		Type:           r.FormValue("type"),
		TotalAmount:    r.FormValue("totalAmount"),
		CurrentBalance: r.FormValue("currentBalance"),
		InterestRate:   r.FormValue("interestRate"),
		MinPayment:     r.FormValue("minPayment"),
		DueDate:        r.FormValue("dueDate"),
		Description:    r.FormValue("description"),
		Status:         r.FormValue("status"),
	}
}

func writeResult(w http.ResponseWriter, result debt.Result, successStatus int) {
	status := successStatus
	if !result.Success {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func setSessionCookie(w http.ResponseWriter, sess *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
	})
}
