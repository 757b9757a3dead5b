package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizadmin/internal/ownercontext"
	"github.com/smallbiznis/bizadmin/internal/project/domain"
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
		log:   p.Log.Named("project.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateProjectRequest) (domain.Project, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return domain.Project{}, domain.ErrInvalidOwner
	}

	project, err := s.normalize(ctx, ownerID, req)
	if err != nil {
		return domain.Project{}, err
	}

	now := time.Now().UTC()
	project.ID = s.genID.Generate()
	project.OwnerID = ownerID
	project.CreatedAt = now
	project.UpdatedAt = now

	if err := s.repo.Insert(ctx, s.db, &project); err != nil {
		return domain.Project{}, err
	}
	return project, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateProjectRequest) (domain.Project, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return domain.Project{}, domain.ErrInvalidOwner
	}

	id, err := parseID(req.ID, domain.ErrInvalidID)
	if err != nil {
		return domain.Project{}, err
	}

	existing, err := s.repo.FindByID(ctx, s.db, ownerID, id)
	if err != nil {
		return domain.Project{}, err
	}
	if existing == nil {
		return domain.Project{}, domain.ErrNotFound
	}

	next, err := s.normalize(ctx, ownerID, req.CreateProjectRequest)
	if err != nil {
		return domain.Project{}, err
	}
	next.ID = existing.ID
	next.OwnerID = existing.OwnerID
	next.CreatedAt = existing.CreatedAt
	next.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, &next); err != nil {
		return domain.Project{}, err
	}
	return next, nil
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidOwner
	}

	id, err := parseID(rawID, domain.ErrInvalidID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted, err := s.repo.Delete(ctx, tx, ownerID, id, time.Now().UTC())
		if err != nil {
			return err
		}
		if deleted == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Project, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return domain.Project{}, domain.ErrInvalidOwner
	}

	id, err := parseID(rawID, domain.ErrInvalidID)
	if err != nil {
		return domain.Project{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, ownerID, id)
	if err != nil {
		return domain.Project{}, err
	}
	if item == nil {
		return domain.Project{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListProjectRequest) (domain.ListProjectResponse, error) {
	ownerID, ok := ownercontext.OwnerIDFromContext(ctx)
	if !ok {
		return domain.ListProjectResponse{}, domain.ErrInvalidOwner
	}

	var filter domain.ListProjectFilter
	if strings.TrimSpace(req.ClientID) != "" {
		clientID, err := parseID(req.ClientID, domain.ErrInvalidClient)
		if err != nil {
			return domain.ListProjectResponse{}, err
		}
		filter.ClientID = clientID
	}

	pageSize := pagination.NormalizeSize(req.PageSize)

	items, err := s.repo.List(ctx, s.db, ownerID, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListProjectResponse{}, err
	}

	items, pageInfo := pagination.Page(items, pageSize, func(project *domain.Project) pagination.Cursor {
		return pagination.NewCursor(project.ID.String(), project.CreatedAt)
	})

	projects := make([]domain.Project, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		projects = append(projects, *item)
	}

	return domain.ListProjectResponse{PageInfo: pageInfo, Projects: projects}, nil
}

func (s *Service) normalize(ctx context.Context, ownerID snowflake.ID, req domain.CreateProjectRequest) (domain.Project, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Project{}, domain.ErrInvalidTitle
	}

	clientID, err := parseID(req.ClientID, domain.ErrInvalidClient)
	if err != nil {
		return domain.Project{}, err
	}
	exists, err := s.repo.ClientExists(ctx, s.db, ownerID, clientID)
	if err != nil {
		return domain.Project{}, err
	}
	if !exists {
		return domain.Project{}, domain.ErrClientNotFound
	}

	return domain.Project{
		ClientID:      clientID,
		ProjectNumber: strings.TrimSpace(req.ProjectNumber),
		Title:         title,
		Description:   strings.TrimSpace(req.Description),
	}, nil
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}
