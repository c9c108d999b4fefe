package persist

import (
	"context"
	"fmt"
	"strings"

	"github.com/nhle/kanban-sync/internal/credential"
	"github.com/nhle/kanban-sync/internal/model"
	"github.com/nhle/kanban-sync/internal/remote"
)

// Names used for the starter board.
const (
	StarterProjectName = "Default Project"
	StarterBoardName   = "My First Board"
)

// StarterLists are the list titles of the starter board, in order.
var StarterLists = []string{"To Do", "In Progress", "Done"}

type starterTask struct {
	list        int
	content     string
	description string
	priority    model.Priority
	dueToday    bool
}

var starterTasks = []starterTask{
	{
		list:        0,
		content:     "Set up project structure",
		description: "Define the main classes and file structure.",
		priority:    model.PriorityHigh,
		dueToday:    true,
	},
	{
		list:        0,
		content:     "Develop UI components",
		description: "Create HTML and CSS for lists and tasks.",
		priority:    model.PriorityMedium,
	},
	{
		list:        1,
		content:     "Implement drag and drop",
		description: "Add functionality to move tasks between lists.",
		priority:    model.PriorityHigh,
	},
}

// Bootstrap creates the starter board. When the remote answered the board
// query it is built on the server first; if any step of that sequence
// fails the board is synthesized locally instead and marked NeedsSave.
func (a *Adapter) Bootstrap(ctx context.Context, remoteReachable bool) (LoadResult, error) {
	prefs, err := a.cache.LoadPreferences(ctx)
	if err != nil {
		a.log.Warn("reading preferences", "err", err)
		prefs = model.Preferences{}
	}

	var notices []model.Notification
	if remoteReachable && a.remote != nil {
		h, err := a.bootstrapRemote(ctx)
		if err == nil {
			if err := a.cache.SaveSnapshot(ctx, h); err != nil {
				a.log.Warn("writing starter board to cache", "err", err)
			}
			a.log.Info("created starter board on remote", "board", h.CurrentBoardID)
			return LoadResult{
				Hierarchy:       h,
				Preferences:     prefs,
				Source:          SourceBootstrap,
				RemoteReachable: true,
				Notices:         []model.Notification{a.notice(model.LevelSuccess, MsgBootstrapped)},
			}, nil
		}
		a.log.Error("creating starter board on remote", "err", err)
		notices = append(notices, a.notice(model.LevelError, MsgBootstrapFailed))
	}

	h, err := a.starterHierarchy()
	if err != nil {
		return LoadResult{}, fmt.Errorf("creating starter board: %w", err)
	}
	a.log.Info("created local starter board", "board", h.CurrentBoardID)
	return LoadResult{
		Hierarchy:       h,
		Preferences:     prefs,
		Source:          SourceStarter,
		RemoteReachable: remoteReachable,
		NeedsSave:       true,
		Notices:         notices,
	}, nil
}

// bootstrapRemote runs register, login, project, board, lists and tasks
// in order and builds the hierarchy from the server's responses.
func (a *Adapter) bootstrapRemote(ctx context.Context) (model.Hierarchy, error) {
	password, err := a.newID()
	if err != nil {
		return model.Hierarchy{}, &SequenceError{Step: "generating password", Err: err}
	}
	creds := remote.Credentials{
		Username: fmt.Sprintf("user%d", a.now().UnixMilli()),
		Password: strings.ReplaceAll(password, "-", ""),
	}

	if err := a.remote.Register(ctx, creds); err != nil {
		return model.Hierarchy{}, &SequenceError{Step: "register", Err: err}
	}
	if a.creds != nil {
		acct := credential.Account{Username: creds.Username, Password: creds.Password}
		if err := a.creds.SaveAccount(a.remote.BaseURL(), acct); err != nil {
			a.log.Warn("storing generated account", "user", creds.Username, "err", err)
		}
	}
	if err := a.remote.Login(ctx, creds); err != nil {
		return model.Hierarchy{}, &SequenceError{Step: "login", Err: err}
	}

	project, err := a.remote.CreateProject(ctx, StarterProjectName)
	if err != nil {
		return model.Hierarchy{}, &SequenceError{Step: "create project", Err: err}
	}
	rb, err := a.remote.CreateBoard(ctx, StarterBoardName, project.ID)
	if err != nil {
		return model.Hierarchy{}, &SequenceError{Step: "create board", Err: err}
	}

	b := model.Board{ID: remote.FormatID(rb.ID), Name: rb.Name, Lists: []model.List{}}
	serverLists := make([]int64, 0, len(StarterLists))
	for i, title := range StarterLists {
		rl, err := a.remote.CreateList(ctx, title, rb.ID, i)
		if err != nil {
			return model.Hierarchy{}, &SequenceError{Step: "create list " + title, Err: err}
		}
		serverLists = append(serverLists, rl.ID)
		b.Lists = append(b.Lists, model.List{
			ID:      remote.FormatID(rl.ID),
			Title:   rl.Title,
			BoardID: b.ID,
			Tasks:   []model.Task{},
		})
	}

	for _, st := range starterTasks {
		l := &b.Lists[st.list]
		in := remote.CardInputFromTask(a.starterTask(st), serverLists[st.list], len(l.Tasks))
		card, err := a.remote.CreateCard(ctx, in)
		if err != nil {
			return model.Hierarchy{}, &SequenceError{Step: "create task " + st.content, Err: err}
		}
		t, err := card.ToTask()
		if err != nil {
			return model.Hierarchy{}, &SequenceError{Step: "create task " + st.content, Err: err}
		}
		t.ListID = l.ID
		l.Tasks = append(l.Tasks, t)
	}

	return model.Hierarchy{Boards: []model.Board{b}, CurrentBoardID: b.ID}, nil
}

// starterHierarchy builds the starter board in memory with fresh ids.
func (a *Adapter) starterHierarchy() (model.Hierarchy, error) {
	boardID, err := a.newID()
	if err != nil {
		return model.Hierarchy{}, err
	}
	b := model.Board{ID: boardID, Name: StarterBoardName, Lists: []model.List{}}
	for _, title := range StarterLists {
		id, err := a.newID()
		if err != nil {
			return model.Hierarchy{}, err
		}
		b.Lists = append(b.Lists, model.List{ID: id, Title: title, BoardID: boardID, Tasks: []model.Task{}})
	}
	for _, st := range starterTasks {
		id, err := a.newID()
		if err != nil {
			return model.Hierarchy{}, err
		}
		l := &b.Lists[st.list]
		t := a.starterTask(st)
		t.ID = id
		t.ListID = l.ID
		l.Tasks = append(l.Tasks, t)
	}
	return model.Hierarchy{Boards: []model.Board{b}, CurrentBoardID: boardID}, nil
}

func (a *Adapter) starterTask(st starterTask) model.Task {
	t := model.Task{
		Content:     st.content,
		Description: st.description,
		Priority:    st.priority,
	}
	if st.dueToday {
		today := model.Today(a.now())
		t.DueDate = &today
	}
	return t
}
