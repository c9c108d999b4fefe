package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// listsSchema guards the shape of GET /api/lists/ before it is decoded.
const listsSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["id", "title", "board"],
		"properties": {
			"id": {"type": "integer"},
			"title": {"type": "string"},
			"board": {"type": "integer"},
			"position": {"type": "integer"},
			"tasks": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["id", "title"],
					"properties": {
						"id": {"type": "integer"},
						"title": {"type": "string"},
						"list": {"type": "integer"},
						"description": {"type": ["string", "null"]},
						"due_date": {"type": ["string", "null"], "format": "date"},
						"priority": {"enum": ["low", "medium", "high", "", null]},
						"position": {"type": "integer"}
					}
				}
			}
		}
	}
}`

var listsValidator = compileSchema("lists.json", listsSchema)

func compileSchema(name, src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("remote: adding schema %s: %v", name, err))
	}
	return compiler.MustCompile(name)
}

// Register creates a user account.
func (c *Client) Register(ctx context.Context, creds Credentials) error {
	return c.do(ctx, http.MethodPost, "/api/auth/register/", creds, nil)
}

// Login opens a session. The session and CSRF cookies are kept by the
// client for later calls.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	return c.do(ctx, http.MethodPost, "/api/auth/login/", creds, nil)
}

// ListProjects returns every project visible to the session.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var out []Project
	if err := c.do(ctx, http.MethodGet, "/api/projects/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateProject creates a project.
func (c *Client) CreateProject(ctx context.Context, name string) (Project, error) {
	var out Project
	err := c.do(ctx, http.MethodPost, "/api/projects/", map[string]string{"name": name}, &out)
	return out, err
}

// ListBoards returns every board. An empty slice means the user has none.
func (c *Client) ListBoards(ctx context.Context) ([]Board, error) {
	var out []Board
	if err := c.do(ctx, http.MethodGet, "/api/boards/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateBoard creates a board inside a project.
func (c *Client) CreateBoard(ctx context.Context, name string, projectID int64) (Board, error) {
	var out Board
	err := c.do(ctx, http.MethodPost, "/api/boards/", Board{Name: name, Project: &projectID}, &out)
	return out, err
}

// RenameBoard changes a board's name.
func (c *Client) RenameBoard(ctx context.Context, id int64, name string) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/boards/%d/", id), map[string]string{"name": name}, nil)
}

// DeleteBoard deletes a board and, server side, everything in it.
func (c *Client) DeleteBoard(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/boards/%d/", id), nil, nil)
}

// ListLists returns the lists of one board with their cards, validated
// against the expected payload shape. Lists and cards are sorted by
// position; the sort is stable so servers without positions keep their
// own order.
func (c *Client) ListLists(ctx context.Context, boardID int64) ([]List, error) {
	path := fmt.Sprintf("/api/lists/?board_id=%d", boardID)

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding lists of board %d: %w", boardID, err)
	}
	if err := listsValidator.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid lists payload for board %d: %w", boardID, err)
	}

	var out []List
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding lists of board %d: %w", boardID, err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	for _, l := range out {
		sort.SliceStable(l.Tasks, func(i, j int) bool { return l.Tasks[i].Position < l.Tasks[j].Position })
	}
	return out, nil
}

// CreateList creates a list on a board.
func (c *Client) CreateList(ctx context.Context, title string, boardID int64, position int) (List, error) {
	var out List
	body := map[string]interface{}{"title": title, "board": boardID, "position": position}
	err := c.do(ctx, http.MethodPost, "/api/lists/", body, &out)
	return out, err
}

// RenameList changes a list's title.
func (c *Client) RenameList(ctx context.Context, id int64, title string) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/lists/%d/", id), map[string]string{"title": title}, nil)
}

// DeleteList deletes a list and its cards.
func (c *Client) DeleteList(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/lists/%d/", id), nil, nil)
}

// CreateCard creates a card.
func (c *Client) CreateCard(ctx context.Context, in CardInput) (Card, error) {
	var out Card
	err := c.do(ctx, http.MethodPost, "/api/cards/", in, &out)
	return out, err
}

// UpdateCard applies a partial update to a card.
func (c *Client) UpdateCard(ctx context.Context, id int64, patch CardPatch) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/cards/%d/", id), patch, nil)
}

// DeleteCard deletes a card.
func (c *Client) DeleteCard(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/cards/%d/", id), nil, nil)
}
