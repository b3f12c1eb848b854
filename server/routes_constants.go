package server

// Route path constants
const (
	RouteHealth = "/healthz"

	RouteUsers       = "/users"
	RouteCurrentUser = "/users/me"
	RouteUser        = "/users/{id}"
)
