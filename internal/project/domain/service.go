package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizadmin/pkg/db/pagination"
)

type ListProjectRequest struct {
	PageToken string
	PageSize  int32
	ClientID  string
}

type ListProjectFilter struct {
	ClientID snowflake.ID
}

type ListProjectResponse struct {
	pagination.PageInfo
	Projects []Project `json:"projects"`
}

type CreateProjectRequest struct {
	ClientID      string `json:"client_id"`
	ProjectNumber string `json:"project_number"`
	Title         string `json:"title"`
	Description   string `json:"description"`
}

type UpdateProjectRequest struct {
	ID string `json:"-"`
	CreateProjectRequest
}

type Service interface {
	Create(context.Context, CreateProjectRequest) (Project, error)
	Update(context.Context, UpdateProjectRequest) (Project, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Project, error)
	List(context.Context, ListProjectRequest) (ListProjectResponse, error)
}

var (
	ErrInvalidOwner   = errors.New("invalid_owner")
	ErrInvalidTitle   = errors.New("invalid_title")
	ErrInvalidClient  = errors.New("invalid_client")
	ErrClientNotFound = errors.New("client_not_found")
	ErrInvalidID      = errors.New("invalid_id")
	ErrNotFound       = errors.New("not_found")
)
