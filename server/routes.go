package server

import "net/http"

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteCurrentUser, ChainMiddleware(s.GetCurrentUserHandler(), s.UserMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteUsers, ChainMiddleware(s.CreateUserHandler(), s.UserMiddleware()...))
	s.RegisterRouteHandler("PATCH "+RouteUser, ChainMiddleware(s.UpdateUserHandler(), s.UserMiddleware()...))
	s.RegisterRouteHandler("DELETE "+RouteUser, ChainMiddleware(s.DeleteUserHandler(), s.UserMiddleware()...))

	// Preflight for every API path
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, s.APIMiddleware()...))
}
