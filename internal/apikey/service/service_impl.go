package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	apikeydomain "github.com/smallbiznis/bizadmin/internal/apikey/domain"
	"github.com/smallbiznis/bizadmin/internal/clock"
	"github.com/smallbiznis/bizadmin/internal/ownercontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	keyPrefix   = "bz_live_"
	secretBytes = 32

	// rotationGrace keeps a rotated key valid while callers switch over.
	rotationGrace = 24 * time.Hour
	// touchEvery bounds how often last_used_at is written per key.
	touchEvery = time.Minute
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  apikeydomain.Repository
	Clock clock.Clock `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  apikeydomain.Repository
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) apikeydomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("apikey.service"),
		repo:  p.Repo,
		genID: p.GenID,
		clock: clk,
	}
}

func (s *Service) List(ctx context.Context) ([]apikeydomain.Response, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return nil, apikeydomain.ErrInvalidOwner
	}

	keys, err := s.repo.List(ctx, s.db, ownerID)
	if err != nil {
		return nil, err
	}

	out := make([]apikeydomain.Response, len(keys))
	for i := range keys {
		out[i] = toResponse(&keys[i])
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, req apikeydomain.CreateRequest) (*apikeydomain.SecretResponse, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return nil, apikeydomain.ErrInvalidOwner
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apikeydomain.ErrInvalidName
	}
	role, err := normalizeRole(req.Role)
	if err != nil {
		return nil, err
	}

	key, plain, err := s.mint(ownerID, name, role, normalizeScopes(req.Scopes))
	if err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, s.db, key); err != nil {
		return nil, err
	}

	s.log.Info("api key created",
		zap.String("owner_id", ownerID.String()),
		zap.String("key_id", key.KeyID),
		zap.String("role", role),
	)
	return &apikeydomain.SecretResponse{KeyID: key.KeyID, APIKey: plain}, nil
}

// Rotate issues a replacement carrying the same name, role and scopes. The
// old key expires after rotationGrace.
func (s *Service) Rotate(ctx context.Context, keyID string) (*apikeydomain.SecretResponse, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return nil, apikeydomain.ErrInvalidOwner
	}
	keyID = strings.TrimSpace(keyID)
	if keyID == "" {
		return nil, apikeydomain.ErrInvalidKeyID
	}

	var out *apikeydomain.SecretResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old, err := s.repo.FindByKeyID(ctx, tx, ownerID, keyID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if !old.Usable(now) {
			return apikeydomain.ErrNotFound
		}

		expires := now.Add(rotationGrace)
		old.ExpiresAt = &expires
		old.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, old); err != nil {
			return err
		}

		next, plain, err := s.mint(ownerID, old.Name, old.Role, normalizeScopes(old.Scopes))
		if err != nil {
			return err
		}
		from := old.KeyID
		next.RotatedFromKeyID = &from
		if err := s.repo.Insert(ctx, tx, next); err != nil {
			return err
		}

		out = &apikeydomain.SecretResponse{KeyID: next.KeyID, APIKey: plain}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("api key rotated",
		zap.String("owner_id", ownerID.String()),
		zap.String("key_id", keyID),
		zap.String("next_key_id", out.KeyID),
	)
	return out, nil
}

func (s *Service) Revoke(ctx context.Context, keyID string) error {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return apikeydomain.ErrInvalidOwner
	}
	keyID = strings.TrimSpace(keyID)
	if keyID == "" {
		return apikeydomain.ErrInvalidKeyID
	}

	key, err := s.repo.FindByKeyID(ctx, s.db, ownerID, keyID)
	if err != nil {
		return err
	}
	if key == nil {
		return apikeydomain.ErrNotFound
	}

	now := s.clock.Now()
	key.IsActive = false
	key.UpdatedAt = now
	if key.ExpiresAt == nil || key.ExpiresAt.After(now) {
		key.ExpiresAt = &now
	}
	if err := s.repo.Update(ctx, s.db, key); err != nil {
		return err
	}

	s.log.Info("api key revoked", zap.String("owner_id", ownerID.String()), zap.String("key_id", keyID))
	return nil
}

func (s *Service) Authenticate(ctx context.Context, raw string) (*apikeydomain.Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apikeydomain.ErrInvalidKey
	}

	key, err := s.repo.FindByHash(ctx, s.db, apikeydomain.HashAPIKey(raw))
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if !key.Usable(now) {
		return nil, apikeydomain.ErrInvalidKey
	}

	if key.LastUsedAt == nil || now.Sub(*key.LastUsedAt) >= touchEvery {
		if err := s.repo.TouchLastUsed(ctx, s.db, key.ID, now); err != nil {
			s.log.Warn("api key usage not recorded", zap.String("key_id", key.KeyID), zap.Error(err))
		}
	}

	return &apikeydomain.Principal{
		OwnerID: key.OwnerID,
		KeyID:   key.KeyID,
		Role:    key.Role,
		Scopes:  []string(key.Scopes),
	}, nil
}

func (s *Service) EnsureKey(ctx context.Context, ownerID snowflake.ID, raw, name, role string) error {
	if ownerID == 0 {
		return apikeydomain.ErrInvalidOwner
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return apikeydomain.ErrInvalidKey
	}
	role, err := normalizeRole(role)
	if err != nil {
		return err
	}

	hash := apikeydomain.HashAPIKey(raw)
	existing, err := s.repo.FindByHash(ctx, s.db, hash)
	if err != nil || existing != nil {
		return err
	}

	key, _, err := s.mint(ownerID, strings.TrimSpace(name), role, pq.StringArray{})
	if err != nil {
		return err
	}
	key.KeyHash = hash
	return s.repo.Insert(ctx, s.db, key)
}

// mint builds an active key with a fresh secret and returns it with the
// plaintext, which is never stored.
func (s *Service) mint(ownerID snowflake.ID, name, role string, scopes pq.StringArray) (*apikeydomain.APIKey, string, error) {
	secret := make([]byte, secretBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, "", err
	}

	id := s.genID.Generate()
	suffix := strings.ToUpper(strconv.FormatInt(id.Int64(), 36))
	plain := keyPrefix + suffix + "_" + hex.EncodeToString(secret)
	now := s.clock.Now()

	return &apikeydomain.APIKey{
		ID:        id,
		OwnerID:   ownerID,
		KeyID:     "key_" + suffix,
		Name:      name,
		Role:      role,
		Scopes:    scopes,
		KeyHash:   apikeydomain.HashAPIKey(plain),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, plain, nil
}

func toResponse(key *apikeydomain.APIKey) apikeydomain.Response {
	return apikeydomain.Response{
		KeyID:            key.KeyID,
		Name:             key.Name,
		Role:             key.Role,
		Scopes:           []string(key.Scopes),
		IsActive:         key.IsActive,
		CreatedAt:        key.CreatedAt,
		LastUsedAt:       key.LastUsedAt,
		ExpiresAt:        key.ExpiresAt,
		RotatedFromKeyID: key.RotatedFromKeyID,
	}
}

// normalizeRole defaults to the least privileged role.
func normalizeRole(role string) (string, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	switch {
	case role == "":
		return apikeydomain.RoleViewer, nil
	case apikeydomain.ValidRole(role):
		return role, nil
	default:
		return "", apikeydomain.ErrInvalidRole
	}
}

func normalizeScopes(scopes []string) pq.StringArray {
	out := pq.StringArray{}
	for _, scope := range scopes {
		if scope = strings.TrimSpace(scope); scope != "" {
			out = append(out, scope)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
