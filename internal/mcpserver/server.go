// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes memodesk tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/memodesk/internal/apperr"
	"github.com/starford/memodesk/internal/models"
	"github.com/starford/memodesk/internal/workspace"
)

// SnapshotURI is the resource URI of the full snapshot export.
const SnapshotURI = "memodesk://snapshot"

// Server wraps the MCP server with memodesk tools.
//
// Tool calls are serialized: a private folder is unlocked for the duration
// of one call only, so the password must accompany every call.
type Server struct {
	mcp *server.MCPServer
	ws  *workspace.Workspace
	mu  sync.Mutex
}

// New creates a new MCP server with all memodesk tools registered.
func New(ws *workspace.Workspace, version string) *Server {
	s := &Server{ws: ws}

	s.mcp = server.NewMCPServer(
		"memodesk",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_folders",
		mcp.WithDescription("List all folders with their visibility, lock state and memo count."),
	), s.listFolders)

	s.mcp.AddTool(mcp.NewTool("list_memos",
		mcp.WithDescription("List the memos of a folder, newest first."),
		mcp.WithString("folder_id", mcp.Required(), mcp.Description("Folder id from list_folders")),
		mcp.WithString("query", mcp.Description("Optional case-insensitive filter on title and content")),
		mcp.WithString("password", mcp.Description("Folder password, required for private folders")),
	), s.listMemos)

	s.mcp.AddTool(mcp.NewTool("read_memo",
		mcp.WithDescription("Read a single memo."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Memo id")),
		mcp.WithString("password", mcp.Description("Folder password, required for memos in private folders")),
	), s.readMemo)

	s.mcp.AddTool(mcp.NewTool("create_memo",
		mcp.WithDescription("Create a memo in a folder. An empty title is replaced with a placeholder."),
		mcp.WithString("folder_id", mcp.Required(), mcp.Description("Folder id from list_folders")),
		mcp.WithString("title", mcp.Description("Memo title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Memo body (plain text)")),
		mcp.WithString("password", mcp.Description("Folder password, required for private folders")),
	), s.createMemo)

	s.mcp.AddTool(mcp.NewTool("export_snapshot",
		mcp.WithDescription("Export every folder, memo and folder credential as the JSON snapshot."),
	), s.exportSnapshot)

	s.mcp.AddResource(
		mcp.NewResource(SnapshotURI, "Memo snapshot",
			mcp.WithResourceDescription("The full JSON snapshot, identical to the stored data."),
			mcp.WithMIMEType("application/json"),
		),
		s.readSnapshotResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// withFolder runs fn with folderID accessible. A private folder that is
// not already unlocked is unlocked with password and locked again after fn.
func (s *Server) withFolder(folderID, password string, fn func() error) error {
	v, err := s.ws.Folder(folderID)
	if err != nil {
		return err
	}
	if v.Locked {
		if password == "" {
			return apperr.ErrLocked
		}
		if _, err := s.ws.Unlock(folderID, password); err != nil {
			return err
		}
		defer func() { _ = s.ws.Lock(folderID) }()
	}
	return fn()
}

func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	case errors.Is(err, apperr.ErrLocked):
		return mcp.NewToolResultError("folder is private: pass its password")
	case errors.Is(err, apperr.ErrWrongPassword):
		return mcp.NewToolResultError("wrong password")
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listFolders(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.ws.Folders()), nil
}

func (s *Server) listMemos(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folderID, err := req.RequireString("folder_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query := req.GetString("query", "")
	password := req.GetString("password", "")

	s.mu.Lock()
	defer s.mu.Unlock()

	var memos []models.Memo
	err = s.withFolder(folderID, password, func() error {
		var lerr error
		memos, lerr = s.ws.Memos(folderID, query)
		return lerr
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(memos), nil
}

func (s *Server) readMemo(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	password := req.GetString("password", "")

	s.mu.Lock()
	defer s.mu.Unlock()

	folderID, err := s.memoFolder(id)
	if err != nil {
		return toolError(err), nil
	}
	var m models.Memo
	err = s.withFolder(folderID, password, func() error {
		var rerr error
		m, rerr = s.ws.Memo(id)
		return rerr
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(m), nil
}

func (s *Server) createMemo(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folderID, err := req.RequireString("folder_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title := req.GetString("title", "")
	password := req.GetString("password", "")

	s.mu.Lock()
	defer s.mu.Unlock()

	var m models.Memo
	err = s.withFolder(folderID, password, func() error {
		if _, err := s.ws.NewMemo(folderID); err != nil {
			return err
		}
		defer s.ws.CloseEditor()
		if _, err := s.ws.UpdateDraft(title, content); err != nil {
			return err
		}
		var serr error
		m, serr = s.ws.SaveMemo()
		return serr
	})
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", m.ID)), nil
}

func (s *Server) exportSnapshot(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := s.ws.Export()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) readSnapshotResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := s.ws.Export()
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      SnapshotURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// memoFolder finds the folder of a memo without the lock check, so the
// caller can decide whether a password is needed.
func (s *Server) memoFolder(id string) (string, error) {
	for _, m := range s.ws.Snapshot().Memos {
		if m.ID == id {
			return m.FolderID, nil
		}
	}
	return "", apperr.ErrNotFound
}
