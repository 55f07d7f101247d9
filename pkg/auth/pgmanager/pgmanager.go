// Package pgmanager provides an AuthManager backed by a PostgreSQL
// principals table. API keys are stored as SHA-256 digests and passwords
// as bcrypt hashes. Lookups are scoped to the request tenant; rows with an
// empty tenant_id are visible in every tenant.
package pgmanager

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/rhuss/portier/pkg/auth"
	"github.com/rhuss/portier/pkg/identity"
	"github.com/rhuss/portier/pkg/tenant"
)

// Sentinel errors.
var (
	ErrConflict        = errors.New("principal already exists")
	ErrInvalidPassword = errors.New("invalid password")
	ErrDisabled        = errors.New("principal disabled")
)

// Principal is one row of the principals table.
type Principal struct {
	TenantID    string
	Username    string
	Application string
	Roles       []string
	Permissions []string
	Disabled    bool
}

// Manager is a PostgreSQL-backed AuthManager.
type Manager struct {
	pool *pgxpool.Pool
}

var _ auth.AuthManager = (*Manager)(nil)

// New connects to the database and optionally applies migrations.
func New(ctx context.Context, cfg Config) (*Manager, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	m := &Manager{pool: pool}
	if cfg.MigrateOnStart {
		if err := m.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}
	return m, nil
}

// Close releases the pool.
func (m *Manager) Close() {
	m.pool.Close()
}

// Ping checks connectivity, for readiness probes.
func (m *Manager) Ping(ctx context.Context) error {
	return m.pool.Ping(ctx)
}

// CreatePrincipal inserts p. An empty password or apiKey leaves that
// credential unset. The tenant defaults to the active tenant of ctx.
func (m *Manager) CreatePrincipal(ctx context.Context, p Principal, password, apiKey string) error {
	if p.Username == "" {
		return errors.New("username is required")
	}
	tenantID := tenant.Normalize(p.TenantID)
	if tenantID == "" {
		tenantID = tenant.Current(ctx)
	}

	var passwordHash, keyHash *string
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}
		s := string(h)
		passwordHash = &s
	}
	if apiKey != "" {
		s := HashKey(apiKey)
		keyHash = &s
	}

	_, err := m.pool.Exec(ctx, `
		INSERT INTO principals (
			tenant_id, username, application, password_hash, api_key_hash,
			roles, permissions, disabled
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		tenantID, p.Username, p.Application, passwordHash, keyHash,
		nonNil(p.Roles), nonNil(p.Permissions), p.Disabled,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return fmt.Errorf("inserting principal: %w", err)
	}
	return nil
}

// AuthenticateToken looks up token as an API key. Unknown keys abstain.
func (m *Manager) AuthenticateToken(ctx context.Context, rc *auth.RequestContext, token string) (*identity.Authentication, error) {
	scope := requestScope(ctx, rc)
	row := m.pool.QueryRow(ctx, `
		SELECT tenant_id, username, application, roles, permissions, disabled
		FROM principals
		WHERE api_key_hash = $1 AND (tenant_id = $2 OR tenant_id = '')
		ORDER BY tenant_id DESC
		LIMIT 1
	`, HashKey(token), scope)

	p, err := scanPrincipal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying api key: %w", err)
	}
	return p.authentication(scope)
}

// AuthenticateCredentials checks username and password. Unknown users
// abstain; a wrong password rejects.
func (m *Manager) AuthenticateCredentials(ctx context.Context, rc *auth.RequestContext, username, password string) (*identity.Authentication, error) {
	scope := requestScope(ctx, rc)
	row := m.pool.QueryRow(ctx, `
		SELECT tenant_id, username, application, roles, permissions, disabled,
		       COALESCE(password_hash, '')
		FROM principals
		WHERE username = $1 AND (tenant_id = $2 OR tenant_id = '')
		ORDER BY tenant_id DESC
		LIMIT 1
	`, username, scope)

	var (
		p    Principal
		hash string
	)
	err := row.Scan(&p.TenantID, &p.Username, &p.Application, &p.Roles, &p.Permissions, &p.Disabled, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying principal: %w", err)
	}
	if hash == "" {
		return nil, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w for %q", ErrInvalidPassword, username)
	}
	return p.authentication(scope)
}

// HashKey returns the stored digest of an API key.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func scanPrincipal(row pgx.Row) (Principal, error) {
	var p Principal
	err := row.Scan(&p.TenantID, &p.Username, &p.Application, &p.Roles, &p.Permissions, &p.Disabled)
	return p, err
}

func (p Principal) authentication(scope string) (*identity.Authentication, error) {
	if p.Disabled {
		return nil, fmt.Errorf("%w: %s", ErrDisabled, p.Username)
	}
	tenantID := p.TenantID
	if tenantID == "" {
		tenantID = scope
	}
	return &identity.Authentication{
		Username:    p.Username,
		TenantID:    tenantID,
		Application: p.Application,
		Principal:   p.Username,
		Roles:       identity.NewSet(p.Roles...),
		Permissions: identity.NewSet(p.Permissions...),
	}, nil
}

func requestScope(ctx context.Context, rc *auth.RequestContext) string {
	if rc != nil {
		if id := tenant.Normalize(rc.TenantID); id != "" {
			return id
		}
	}
	return tenant.Current(ctx)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
