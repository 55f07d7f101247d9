package identity

import (
	"fmt"
	"strconv"
	"strings"
)

// TenantHeader is the request header carrying an explicit tenant. Some
// gateways copy it into the token under the same name.
const TenantHeader = "X-TenantId"

// Alias lists, in lookup order.
var (
	TenantAliases      = []string{"tenant", "tenantId", TenantHeader}
	CityAliases        = []string{"city", "location"}
	CountryAliases     = []string{"country", "countryId"}
	GenderAliases      = []string{"gender", "sex", "sexe"}
	EmailAliases       = []string{"email", "mail"}
	PhoneAliases       = []string{"mobile", "mobileNumber", "phoneNumber", "phone"}
	GivenNameAliases   = []string{"givenname", "given_name", "firstname", "first_name", "prenom"}
	FamilyNameAliases  = []string{"familyname", "family_name", "lastName", "last_name"}
	NicknameAliases    = []string{"nickname", "nick_name", "pseudo", "alias"}
	ApplicationAliases = []string{"applicationName", "application", "applicationId", "app"}
	PermissionAliases  = []string{"permissions", "grants"}
	RoleAliases        = []string{"roles"}
	PrincipalAliases   = []string{"principal"}
	LiveModeAliases    = []string{"live", "liveMode"}
)

// Normalize maps a claim bag onto an Authentication. Missing fields stay at
// their zero value; Normalize never fails.
func Normalize(claims map[string]any, subject string) *Authentication {
	tenant, _ := Lookup(claims, TenantAliases...)
	application, _ := Lookup(claims, ApplicationAliases...)
	principal, _ := lookupValue(claims, PrincipalAliases...)

	return &Authentication{
		Username:    subject,
		TenantID:    tenant,
		Application: application,
		Principal:   principal,
		Profile: Profile{
			City:        first(claims, CityAliases),
			Country:     first(claims, CountryAliases),
			Gender:      first(claims, GenderAliases),
			Email:       first(claims, EmailAliases),
			PhoneNumber: first(claims, PhoneAliases),
			GivenName:   first(claims, GivenNameAliases),
			FamilyName:  first(claims, FamilyNameAliases),
			Nickname:    first(claims, NicknameAliases),
		},
		Roles:       lookupList(claims, RoleAliases...),
		Permissions: lookupList(claims, PermissionAliases...),
		Claims:      claims,
		LiveMode:    lookupBool(claims, LiveModeAliases...),
	}
}

// Lookup returns the first alias whose claim is present and renders to a
// non-empty string.
func Lookup(claims map[string]any, aliases ...string) (string, bool) {
	for _, name := range aliases {
		v, ok := claims[name]
		if !ok || v == nil {
			continue
		}
		if s := render(v); s != "" {
			return s, true
		}
	}
	return "", false
}

func first(claims map[string]any, aliases []string) string {
	s, _ := Lookup(claims, aliases...)
	return s
}

func lookupValue(claims map[string]any, aliases ...string) (any, bool) {
	for _, name := range aliases {
		v, ok := claims[name]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && s == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// lookupList accepts either a comma separated string or a JSON array.
func lookupList(claims map[string]any, aliases ...string) Set {
	v, ok := lookupValue(claims, aliases...)
	if !ok {
		return make(Set)
	}
	if items, isList := v.([]any); isList {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			parts = append(parts, render(item))
		}
		return ParseList(strings.Join(parts, ","))
	}
	return ParseList(render(v))
}

// lookupBool is true only for a case-insensitive "true".
func lookupBool(claims map[string]any, aliases ...string) bool {
	s, _ := Lookup(claims, aliases...)
	return strings.EqualFold(s, "true")
}

func render(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
