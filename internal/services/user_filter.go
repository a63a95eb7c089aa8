package services

import "strings"

// UserFilter decides which logins get statistics rows. GitHub logins are case-insensitive.
type UserFilter struct {
	include map[string]string // lowercase to configured spelling, nil allows everyone not excluded
	exclude map[string]string
}

func NewUserFilter(include, exclude []string) UserFilter {
	f := UserFilter{exclude: toLoginSet(exclude)}
	if len(include) > 0 {
		f.include = toLoginSet(include)
	}
	return f
}

// Allows reports whether login should be reported
func (f UserFilter) Allows(login string) bool {
	if login == "" {
		return false
	}
	key := strings.ToLower(login)
	if _, ok := f.exclude[key]; ok {
		return false
	}
	if f.include == nil {
		return true
	}
	_, ok := f.include[key]
	return ok
}

// DisplayName returns the spelling of login from the include list, or login itself
func (f UserFilter) DisplayName(login string) string {
	if name, ok := f.include[strings.ToLower(login)]; ok {
		return name
	}
	return login
}

func toLoginSet(logins []string) map[string]string {
	set := make(map[string]string, len(logins))
	for _, login := range logins {
		if login = strings.TrimSpace(login); login != "" {
			set[strings.ToLower(login)] = login
		}
	}
	return set
}

func sameLogin(a, b string) bool {
	return strings.EqualFold(a, b)
}
