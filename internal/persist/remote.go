package persist

import (
	"context"

	"github.com/nhle/kanban-sync/internal/credential"
	"github.com/nhle/kanban-sync/internal/remote"
)

// Remote is the kanban server API used by the adapter and the pusher.
// *remote.Client implements it.
type Remote interface {
	BaseURL() string

	Register(ctx context.Context, creds remote.Credentials) error
	Login(ctx context.Context, creds remote.Credentials) error

	ListProjects(ctx context.Context) ([]remote.Project, error)
	CreateProject(ctx context.Context, name string) (remote.Project, error)

	ListBoards(ctx context.Context) ([]remote.Board, error)
	CreateBoard(ctx context.Context, name string, projectID int64) (remote.Board, error)
	RenameBoard(ctx context.Context, id int64, name string) error
	DeleteBoard(ctx context.Context, id int64) error

	ListLists(ctx context.Context, boardID int64) ([]remote.List, error)
	CreateList(ctx context.Context, title string, boardID int64, position int) (remote.List, error)
	RenameList(ctx context.Context, id int64, title string) error
	DeleteList(ctx context.Context, id int64) error

	CreateCard(ctx context.Context, in remote.CardInput) (remote.Card, error)
	UpdateCard(ctx context.Context, id int64, patch remote.CardPatch) error
	DeleteCard(ctx context.Context, id int64) error
}

var _ Remote = (*remote.Client)(nil)

// Credentials stores the server account. *credential.Store implements it.
type Credentials interface {
	LoadAccount(baseURL string) (credential.Account, error)
	SaveAccount(baseURL string, acct credential.Account) error
}

var _ Credentials = (*credential.Store)(nil)
