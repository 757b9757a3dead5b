package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizadmin/internal/client/domain"
	"github.com/smallbiznis/bizadmin/internal/ownercontext"
	"github.com/smallbiznis/bizadmin/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("client.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateClientRequest) (domain.Client, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return domain.Client{}, domain.ErrInvalidOwner
	}

	client, err := normalize(req)
	if err != nil {
		return domain.Client{}, err
	}

	now := time.Now().UTC()
	client.ID = s.genID.Generate()
	client.OwnerID = ownerID
	client.CreatedAt = now
	client.UpdatedAt = now

	if err := s.repo.Insert(ctx, s.db, &client); err != nil {
		return domain.Client{}, err
	}

	return client, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateClientRequest) (domain.Client, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return domain.Client{}, domain.ErrInvalidOwner
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Client{}, err
	}

	next, err := normalize(req.CreateClientRequest)
	if err != nil {
		return domain.Client{}, err
	}

	existing, err := s.repo.FindByID(ctx, s.db, ownerID, id)
	if err != nil {
		return domain.Client{}, err
	}
	if existing == nil {
		return domain.Client{}, domain.ErrNotFound
	}

	next.ID = existing.ID
	next.OwnerID = existing.OwnerID
	next.CreatedAt = existing.CreatedAt
	next.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, &next); err != nil {
		return domain.Client{}, err
	}
	return next, nil
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidOwner
	}

	id, err := s.parseID(rawID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted, err := s.repo.DeleteCascade(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if deleted == 0 {
			return domain.ErrNotFound
		}
		s.log.Info("client deleted",
			zap.String("owner_id", ownerID.String()),
			zap.String("client_id", id.String()),
		)
		return nil
	})
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Client, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return domain.Client{}, domain.ErrInvalidOwner
	}

	id, err := s.parseID(rawID)
	if err != nil {
		return domain.Client{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, ownerID, id)
	if err != nil {
		return domain.Client{}, err
	}
	if item == nil {
		return domain.Client{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListClientRequest) (domain.ListClientResponse, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return domain.ListClientResponse{}, domain.ErrInvalidOwner
	}

	filter := domain.ListClientFilter{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
	}

	pageSize := pagination.NormalizeSize(req.PageSize)

	items, err := s.repo.List(ctx, s.db, ownerID, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListClientResponse{}, err
	}

	items, pageInfo := pagination.Page(items, pageSize, func(client *domain.Client) pagination.Cursor {
		return pagination.NewCursor(client.ID.String(), client.CreatedAt)
	})

	clients := make([]domain.Client, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		clients = append(clients, *item)
	}

	return domain.ListClientResponse{PageInfo: pageInfo, Clients: clients}, nil
}

func normalize(req domain.CreateClientRequest) (domain.Client, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Client{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		return domain.Client{}, domain.ErrInvalidEmail
	}

	return domain.Client{
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(req.Phone),
		Address:   strings.TrimSpace(req.Address),
		KvKNumber: strings.TrimSpace(req.KvKNumber),
		BTWNumber: strings.TrimSpace(req.BTWNumber),
	}, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
