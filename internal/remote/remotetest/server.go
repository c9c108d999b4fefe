// Package remotetest runs an in-memory kanban API on echo for tests.
package remotetest

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/nhle/kanban-sync/internal/remote"
)

const (
	csrfCookie    = "csrftoken"
	sessionCookie = "sessionid"
)

type failure struct {
	method string
	prefix string
	status int
}

// Server is a fake kanban backend. All state is guarded by mu and can be
// inspected from tests.
type Server struct {
	mu           sync.Mutex
	requireLogin bool
	nextID   int64
	users    map[string]string
	sessions map[string]string
	projects []remote.Project
	boards   []remote.Board
	lists    []remote.List
	cards    []remote.Card
	failures []failure
	requests []string

	http *httptest.Server
}

// New starts a server and stops it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		users:    make(map[string]string),
		sessions: make(map[string]string),
	}
	s.http = httptest.NewServer(s.routes())
	t.Cleanup(s.http.Close)
	return s
}

// URL returns the base URL to point a remote.Client at.
func (s *Server) URL() string {
	return s.http.URL
}

// Close stops the server; later requests fail at the network level.
func (s *Server) Close() {
	s.http.Close()
}

// Fail makes every request whose method matches and whose path starts
// with prefix answer with status. An empty method matches all methods.
func (s *Server) Fail(method, prefix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, prefix: prefix, status: status})
}

// RequireLogin makes project, board, list and card calls fail with 401
// unless the client holds a session.
func (s *Server) RequireLogin(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requireLogin = on
}

// Recover removes every failure installed with Fail.
func (s *Server) Recover() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = nil
}

// Requests returns "METHOD /path" for every request received, in order.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// AddUser registers an account directly.
func (s *Server) AddUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
}

// Users returns the registered usernames.
func (s *Server) Users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.users))
	for u := range s.users {
		out = append(out, u)
	}
	return out
}

// SeedBoard creates a board with the given list titles and returns it
// together with the created lists.
func (s *Server) SeedBoard(name string, listTitles ...string) (remote.Board, []remote.List) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := remote.Board{ID: s.id(), Name: name}
	s.boards = append(s.boards, b)
	var lists []remote.List
	for i, title := range listTitles {
		l := remote.List{ID: s.id(), Title: title, Board: b.ID, Position: i}
		s.lists = append(s.lists, l)
		lists = append(lists, l)
	}
	return b, lists
}

// SeedCard adds a card to a list.
func (s *Server) SeedCard(listID int64, title, priority string) remote.Card {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := remote.Card{ID: s.id(), Title: title, List: listID, Priority: priority, Position: s.countCards(listID)}
	s.cards = append(s.cards, c)
	return c
}

// Projects returns a copy of the stored projects.
func (s *Server) Projects() []remote.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]remote.Project(nil), s.projects...)
}

// Boards returns a copy of the stored boards.
func (s *Server) Boards() []remote.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]remote.Board(nil), s.boards...)
}

// Lists returns the lists of a board in position order, cards embedded.
func (s *Server) Lists(boardID int64) []remote.List {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listsOf(boardID)
}

// Cards returns the cards of a list in position order.
func (s *Server) Cards(listID int64) []remote.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cardsOf(listID)
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(s.record, s.inject, s.csrf)

	e.POST("/api/auth/register/", s.register)
	e.POST("/api/auth/login/", s.login)

	api := e.Group("/api", s.session)
	api.GET("/projects/", s.listProjects)
	api.POST("/projects/", s.createProject)
	api.GET("/boards/", s.listBoards)
	api.POST("/boards/", s.createBoard)
	api.PATCH("/boards/:id/", s.patchBoard)
	api.DELETE("/boards/:id/", s.deleteBoard)
	api.GET("/lists/", s.listLists)
	api.POST("/lists/", s.createList)
	api.PATCH("/lists/:id/", s.patchList)
	api.DELETE("/lists/:id/", s.deleteList)
	api.POST("/cards/", s.createCard)
	api.PATCH("/cards/:id/", s.patchCard)
	api.DELETE("/cards/:id/", s.deleteCard)
	return e
}

func (s *Server) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		s.mu.Lock()
		s.requests = append(s.requests, req.Method+" "+req.URL.Path)
		s.mu.Unlock()
		return next(c)
	}
}

func (s *Server) inject(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		s.mu.Lock()
		status := 0
		for _, f := range s.failures {
			if (f.method == "" || f.method == req.Method) && strings.HasPrefix(req.URL.Path, f.prefix) {
				status = f.status
				break
			}
		}
		s.mu.Unlock()
		if status != 0 {
			return c.JSON(status, map[string]string{"error": http.StatusText(status)})
		}
		return next(c)
	}
}

// csrf hands out a token cookie and checks it on mutating calls outside
// the auth endpoints.
func (s *Server) csrf(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		token := ""
		if ck, err := c.Cookie(csrfCookie); err == nil {
			token = ck.Value
		} else {
			token = randomToken()
			c.SetCookie(&http.Cookie{Name: csrfCookie, Value: token, Path: "/"})
		}

		mutating := req.Method != http.MethodGet && req.Method != http.MethodHead
		if mutating && !strings.HasPrefix(req.URL.Path, "/api/auth/") {
			if req.Header.Get("X-CSRFToken") != token {
				return c.JSON(http.StatusForbidden, map[string]string{"detail": "CSRF Failed: CSRF token missing or incorrect."})
			}
		}
		return next(c)
	}
}

func (s *Server) session(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ck, err := c.Cookie(sessionCookie)
		s.mu.Lock()
		_, ok := s.sessions[cookieValue(ck, err)]
		required := s.requireLogin
		s.mu.Unlock()
		if required && !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
		}
		return next(c)
	}
}

func (s *Server) register(c echo.Context) error {
	var in remote.Credentials
	if err := c.Bind(&in); err != nil || in.Username == "" || in.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Username and password required"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[in.Username]; exists {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "User already exists"})
	}
	s.users[in.Username] = in.Password
	return c.JSON(http.StatusOK, map[string]string{"message": "User registered successfully"})
}

func (s *Server) login(c echo.Context) error {
	var in remote.Credentials
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if pw, ok := s.users[in.Username]; !ok || pw != in.Password {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
	}
	sid := randomToken()
	s.sessions[sid] = in.Username
	c.SetCookie(&http.Cookie{Name: sessionCookie, Value: sid, Path: "/", HttpOnly: true})
	return c.JSON(http.StatusOK, map[string]string{"message": "Login successful"})
}

func (s *Server) listProjects(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, append([]remote.Project{}, s.projects...))
}

func (s *Server) createProject(c echo.Context) error {
	var in remote.Project
	if err := c.Bind(&in); err != nil || strings.TrimSpace(in.Name) == "" {
		return c.JSON(http.StatusBadRequest, map[string][]string{"name": {"This field is required."}})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := remote.Project{ID: s.id(), Name: in.Name}
	s.projects = append(s.projects, p)
	return c.JSON(http.StatusCreated, p)
}

func (s *Server) listBoards(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, append([]remote.Board{}, s.boards...))
}

func (s *Server) createBoard(c echo.Context) error {
	var in remote.Board
	if err := c.Bind(&in); err != nil || strings.TrimSpace(in.Name) == "" {
		return c.JSON(http.StatusBadRequest, map[string][]string{"name": {"This field is required."}})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.Project == nil || !s.hasProject(*in.Project) {
		return c.JSON(http.StatusBadRequest, map[string][]string{"project": {"Invalid pk."}})
	}
	b := remote.Board{ID: s.id(), Name: in.Name, Project: in.Project}
	s.boards = append(s.boards, b)
	return c.JSON(http.StatusCreated, b)
}

func (s *Server) patchBoard(c echo.Context) error {
	var in remote.Board
	if err := c.Bind(&in); err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.boards {
		if s.boards[i].ID == pathID(c) {
			if in.Name != "" {
				s.boards[i].Name = in.Name
			}
			return c.JSON(http.StatusOK, s.boards[i])
		}
	}
	return c.NoContent(http.StatusNotFound)
}

func (s *Server) deleteBoard(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := pathID(c)
	for i, b := range s.boards {
		if b.ID == id {
			s.boards = append(s.boards[:i], s.boards[i+1:]...)
			for _, l := range s.listsOf(id) {
				s.removeList(l.ID)
			}
			return c.NoContent(http.StatusNoContent)
		}
	}
	return c.NoContent(http.StatusNotFound)
}

func (s *Server) listLists(c echo.Context) error {
	boardID, err := strconv.ParseInt(c.QueryParam("board_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "board_id required"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, s.listsOf(boardID))
}

func (s *Server) createList(c echo.Context) error {
	var in remote.List
	if err := c.Bind(&in); err != nil || strings.TrimSpace(in.Title) == "" {
		return c.JSON(http.StatusBadRequest, map[string][]string{"title": {"This field is required."}})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasBoard(in.Board) {
		return c.JSON(http.StatusBadRequest, map[string][]string{"board": {"Invalid pk."}})
	}
	l := remote.List{ID: s.id(), Title: in.Title, Board: in.Board, Position: in.Position, Tasks: []remote.Card{}}
	s.lists = append(s.lists, l)
	return c.JSON(http.StatusCreated, l)
}

func (s *Server) patchList(c echo.Context) error {
	var in remote.List
	if err := c.Bind(&in); err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lists {
		if s.lists[i].ID == pathID(c) {
			if in.Title != "" {
				s.lists[i].Title = in.Title
			}
			return c.JSON(http.StatusOK, s.lists[i])
		}
	}
	return c.NoContent(http.StatusNotFound)
}

func (s *Server) deleteList(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.removeList(pathID(c)) {
		return c.NoContent(http.StatusNotFound)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) createCard(c echo.Context) error {
	var in remote.CardInput
	if err := c.Bind(&in); err != nil || strings.TrimSpace(in.Title) == "" {
		return c.JSON(http.StatusBadRequest, map[string][]string{"title": {"This field is required."}})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasList(in.List) {
		return c.JSON(http.StatusBadRequest, map[string][]string{"list": {"Invalid pk."}})
	}
	card := remote.Card{
		ID:          s.id(),
		Title:       in.Title,
		List:        in.List,
		Description: in.Description,
		DueDate:     in.DueDate,
		Priority:    in.Priority,
		Position:    in.Position,
	}
	if card.Priority == "" {
		card.Priority = "low"
	}
	s.cards = append(s.cards, card)
	return c.JSON(http.StatusCreated, card)
}

func (s *Server) patchCard(c echo.Context) error {
	var in remote.CardPatch
	if err := c.Bind(&in); err != nil {
		return c.NoContent(http.StatusBadRequest)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cards {
		card := &s.cards[i]
		if card.ID != pathID(c) {
			continue
		}
		if in.Title != nil {
			card.Title = *in.Title
		}
		if in.Description != nil {
			card.Description = *in.Description
		}
		if in.DueDate != nil {
			due := *in.DueDate
			card.DueDate = &due
			if due == "" {
				card.DueDate = nil
			}
		}
		if in.Priority != nil {
			card.Priority = *in.Priority
		}
		if in.List != nil {
			if !s.hasList(*in.List) {
				return c.JSON(http.StatusBadRequest, map[string][]string{"list": {"Invalid pk."}})
			}
			card.List = *in.List
		}
		if in.Position != nil {
			card.Position = *in.Position
		}
		return c.JSON(http.StatusOK, *card)
	}
	return c.NoContent(http.StatusNotFound)
}

func (s *Server) deleteCard(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := pathID(c)
	for i, card := range s.cards {
		if card.ID == id {
			s.cards = append(s.cards[:i], s.cards[i+1:]...)
			return c.NoContent(http.StatusNoContent)
		}
	}
	return c.NoContent(http.StatusNotFound)
}

// The helpers below expect mu to be held.

func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Server) hasProject(id int64) bool {
	for _, p := range s.projects {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (s *Server) hasBoard(id int64) bool {
	for _, b := range s.boards {
		if b.ID == id {
			return true
		}
	}
	return false
}

func (s *Server) hasList(id int64) bool {
	for _, l := range s.lists {
		if l.ID == id {
			return true
		}
	}
	return false
}

func (s *Server) listsOf(boardID int64) []remote.List {
	out := []remote.List{}
	for _, l := range s.lists {
		if l.Board == boardID {
			l.Tasks = s.cardsOf(l.ID)
			out = append(out, l)
		}
	}
	sortByPosition(out, func(l remote.List) int { return l.Position })
	return out
}

func (s *Server) cardsOf(listID int64) []remote.Card {
	out := []remote.Card{}
	for _, c := range s.cards {
		if c.List == listID {
			out = append(out, c)
		}
	}
	sortByPosition(out, func(c remote.Card) int { return c.Position })
	return out
}

func (s *Server) countCards(listID int64) int {
	n := 0
	for _, c := range s.cards {
		if c.List == listID {
			n++
		}
	}
	return n
}

func (s *Server) removeList(id int64) bool {
	for i, l := range s.lists {
		if l.ID != id {
			continue
		}
		s.lists = append(s.lists[:i], s.lists[i+1:]...)
		kept := s.cards[:0]
		for _, c := range s.cards {
			if c.List != id {
				kept = append(kept, c)
			}
		}
		s.cards = kept
		return true
	}
	return false
}

// sortByPosition is a stable insertion sort; fake data sets are tiny.
func sortByPosition[T any](items []T, pos func(T) int) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && pos(items[j]) < pos(items[j-1]); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

func pathID(c echo.Context) int64 {
	id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
	return id
}

func cookieValue(ck *http.Cookie, err error) string {
	if err != nil {
		return ""
	}
	return ck.Value
}

func randomToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("remotetest: reading random bytes: %v", err))
	}
	return hex.EncodeToString(b)
}
