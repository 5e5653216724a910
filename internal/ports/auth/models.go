package auth

// Roles de acceso del sistema (espejo de la colección usuarios).
const (
	RoleAdmin    = "admin"
	RoleCirculos = "circulos"
	RoleTaller   = "taller"
	RoleRiego    = "riego"
	RoleVentas   = "ventas"
)

// ValidRole informa si el rol existe (vacío = sin acceso, también válido).
func ValidRole(role string) bool {
	switch role {
	case "", RoleAdmin, RoleCirculos, RoleTaller, RoleRiego, RoleVentas:
		return true
	default:
		return false
	}
}

// Claims representa la información extraída del token.
type Claims struct {
	UserID string
	Email  string
	Role   string
}

// Can informa si el rol habilita el módulo pedido. Admin pasa siempre; sin rol
// no hay acceso.
func (c Claims) Can(role string) bool {
	if c.Role == RoleAdmin {
		return true
	}
	return c.Role != "" && c.Role == role
}
