package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/bizadmin/pkg/db/pagination"
)

type ListClientRequest struct {
	PageToken string
	PageSize  int32
	Name      string
	Email     string
}

type ListClientFilter struct {
	Name  string
	Email string
}

type ListClientResponse struct {
	pagination.PageInfo
	Clients []Client `json:"clients"`
}

type CreateClientRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	KvKNumber string `json:"kvk_number"`
	BTWNumber string `json:"btw_number"`
}

type UpdateClientRequest struct {
	ID string `json:"-"`
	CreateClientRequest
}

type Service interface {
	Create(context.Context, CreateClientRequest) (Client, error)
	Update(context.Context, UpdateClientRequest) (Client, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Client, error)
	List(context.Context, ListClientRequest) (ListClientResponse, error)
}

var (
	ErrInvalidOwner = errors.New("invalid_owner")
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrInvalidID    = errors.New("invalid_id")
	ErrNotFound     = errors.New("not_found")
)
