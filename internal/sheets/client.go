// Package sheets persists run checks to daily Google spreadsheets and reads
// the run names sheet.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

const (
	MimeFolder      = "application/vnd.google-apps.folder"
	MimeSpreadsheet = "application/vnd.google-apps.spreadsheet"
)

// API is the subset of Drive and Sheets calls this package makes.
type API interface {
	FindFile(ctx context.Context, name, mimeType, parentID string) (string, bool, error)
	CreateFile(ctx context.Context, name, mimeType, parentID string) (string, error)
	CreateSpreadsheet(ctx context.Context, title, sheetTitle string) (string, error)
	MoveToFolder(ctx context.Context, fileID, folderID string) error
	UpdateValues(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error
	AppendValues(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error
	GetValues(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error)
	UserEmail(ctx context.Context) (string, error)
}

// Client talks to Google with a user's OAuth token.
type Client struct {
	sheets   *sheetsapi.Service
	drive    *drive.Service
	userinfo *oauth2api.Service
}

// NewClient builds the Drive, Sheets and userinfo services over ts.
func NewClient(ctx context.Context, ts oauth2.TokenSource) (*Client, error) {
	opt := option.WithTokenSource(ts)

	s, err := sheetsapi.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	d, err := drive.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	u, err := oauth2api.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("userinfo service: %w", err)
	}
	return &Client{sheets: s, drive: d, userinfo: u}, nil
}

// FindFile returns the first non-trashed file with name and mimeType,
// optionally inside parentID.
func (c *Client) FindFile(ctx context.Context, name, mimeType, parentID string) (string, bool, error) {
	q := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", escapeQuery(name), mimeType)
	if parentID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeQuery(parentID))
	}

	resp, err := c.drive.Files.List().
		Q(q).
		Fields("files(id, name)").
		Spaces("drive").
		Context(ctx).
		Do()
	if err != nil {
		return "", false, fmt.Errorf("drive list %q: %w", name, err)
	}
	if len(resp.Files) == 0 {
		return "", false, nil
	}
	return resp.Files[0].Id, true, nil
}

func (c *Client) CreateFile(ctx context.Context, name, mimeType, parentID string) (string, error) {
	f := &drive.File{Name: name, MimeType: mimeType}
	if parentID != "" {
		f.Parents = []string{parentID}
	}
	created, err := c.drive.Files.Create(f).Fields("id, name").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive create %q: %w", name, err)
	}
	return created.Id, nil
}

func (c *Client) CreateSpreadsheet(ctx context.Context, title, sheetTitle string) (string, error) {
	ss := &sheetsapi.Spreadsheet{
		Properties: &sheetsapi.SpreadsheetProperties{Title: title},
		Sheets: []*sheetsapi.Sheet{
			{Properties: &sheetsapi.SheetProperties{Title: sheetTitle}},
		},
	}
	created, err := c.sheets.Spreadsheets.Create(ss).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create spreadsheet %q: %w", title, err)
	}
	return created.SpreadsheetId, nil
}

func (c *Client) MoveToFolder(ctx context.Context, fileID, folderID string) error {
	_, err := c.drive.Files.Update(fileID, &drive.File{}).
		AddParents(folderID).
		Fields("id, parents").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("move %s to folder: %w", fileID, err)
	}
	return nil
}

func (c *Client) UpdateValues(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error {
	_, err := c.sheets.Spreadsheets.Values.
		Update(spreadsheetID, rng, &sheetsapi.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (c *Client) AppendValues(ctx context.Context, spreadsheetID, rng string, values [][]interface{}) error {
	_, err := c.sheets.Spreadsheets.Values.
		Append(spreadsheetID, rng, &sheetsapi.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append %s: %w", rng, err)
	}
	return nil
}

func (c *Client) GetValues(ctx context.Context, spreadsheetID, rng string) ([][]interface{}, error) {
	resp, err := c.sheets.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rng, err)
	}
	return resp.Values, nil
}

// UserEmail returns the Google account address behind the token.
func (c *Client) UserEmail(ctx context.Context) (string, error) {
	info, err := c.userinfo.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("userinfo: %w", err)
	}
	return info.Email, nil
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
