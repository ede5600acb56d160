package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) routes() http.Handler {
	r := mux.NewRouter().StrictSlash(true)
	r.NotFoundHandler = http.HandlerFunc(s.notFound)

	for _, rt := range s.listingRoutes() {
		r.Handle(rt.path, s.listingHandler(rt)).Methods(http.MethodGet, http.MethodHead).Name(rt.name)
	}

	r.HandleFunc("/posts/{id:[0-9]+}/", s.postDetail).Methods(http.MethodGet, http.MethodHead).Name("post_detail")
	r.Handle("/create/", s.loginRequired(http.HandlerFunc(s.postCreate))).
		Methods(http.MethodGet, http.MethodPost).Name("post_create")
	r.Handle("/posts/{id:[0-9]+}/edit/", s.loginRequired(http.HandlerFunc(s.postEdit))).
		Methods(http.MethodGet, http.MethodPost).Name("post_edit")

	r.HandleFunc("/auth/signup/", s.signup).Methods(http.MethodGet, http.MethodPost).Name("signup")
	r.HandleFunc("/auth/login/", s.login).Methods(http.MethodGet, http.MethodPost).Name("login")
	r.HandleFunc("/auth/logout/", s.logout).Methods(http.MethodPost).Name("logout")

	r.HandleFunc("/media/{key:.+}", s.serveMedia).Methods(http.MethodGet, http.MethodHead).Name("media")

	r.HandleFunc("/healthz", s.liveness).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.readiness).Methods(http.MethodGet)

	// порядок: request id -> логирование -> recover -> сессия -> проверка источника
	var h http.Handler = r
	h = s.sameOrigin(h)
	h = s.session(h)
	h = s.recoverer(h)
	h = s.accessLog(h)
	h = requestID(h)
	return h
}
