package config

func (a Auth) GetSigningKey() string {
	return a.SigningKey
}

func (a Auth) GetTokenExpiration() int {
	if a.TokenExpiration <= 0 {
		return 24
	}
	return a.TokenExpiration
}

func (a Auth) GetIssuer() string {
	return a.Issuer
}

func (a Auth) GetAudience() []string {
	return a.Audience
}

func (a Auth) GetAdminEmail() string {
	return a.AdminEmail
}

func (a Auth) GetCookieName() string {
	return a.CookieName
}

func (p Persistence) GetDriver() string {
	if p.Driver == "" {
		return "sqlite"
	}
	return p.Driver
}

func (p Persistence) GetDSN() string {
	if p.DSN == "" {
		return "file::memory:?cache=shared"
	}
	return p.DSN
}

func (p Persistence) GetServer() string {
	return p.Server
}

func (p Persistence) GetDatabase() string {
	return p.Database
}

func (p Persistence) GetDebug() bool {
	return p.Debug
}
