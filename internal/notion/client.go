// Package notion is a minimal client for the document service REST API:
// it creates pages and appends children blocks, nothing more.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/starford/raido/internal/apperr"
)

// MaxTextLen is the longest text a single paragraph block may carry.
const MaxTextLen = 2000

// maxBlocksPerAppend keeps each append request well under the service's
// hundred-children-per-call cap.
const maxBlocksPerAppend = 50

// Service is the slice of the remote API the mirror depends on.
type Service interface {
	// CreatePage creates a page titled title under parentID and returns
	// the new page id.
	CreatePage(ctx context.Context, parentID, title string) (string, error)
	// AppendText appends one paragraph block per chunk, preserving order.
	AppendText(ctx context.Context, pageID string, chunks []string) error
	// AppendFile appends a single external file block.
	AppendFile(ctx context.Context, pageID, name, url string) error
}

// Client implements Service over HTTP using an integration token.
type Client struct {
	baseURL    string
	token      string
	version    string
	httpClient *http.Client
}

// NewClient creates a client for the API at baseURL. The version string
// goes out as the Notion-Version header on every request.
func NewClient(baseURL, token, version string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		version:    version,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreatePage creates a page titled title under parentID.
func (c *Client) CreatePage(ctx context.Context, parentID, title string) (string, error) {
	reqBody := CreatePageRequest{
		Parent:     Parent{PageID: parentID},
		Properties: Properties{Title: TitleProperty{Title: newRichText(title)}},
	}
	var page Page
	if err := c.do(ctx, http.MethodPost, "/v1/pages", reqBody, &page); err != nil {
		return "", fmt.Errorf("notion: create page %q: %w", title, err)
	}
	return page.ID, nil
}

// AppendText appends one paragraph block per chunk, in order. Batches of
// up to maxBlocksPerAppend go out per request; zero chunks means no
// request at all.
func (c *Client) AppendText(ctx context.Context, pageID string, chunks []string) error {
	blocks := make([]Block, 0, len(chunks))
	for _, chunk := range chunks {
		if utf8.RuneCountInString(chunk) > MaxTextLen {
			return fmt.Errorf("notion: text block exceeds %d characters", MaxTextLen)
		}
		blocks = append(blocks, ParagraphBlock(chunk))
	}
	return c.appendBlocks(ctx, pageID, blocks)
}

// AppendFile appends one external file block with a display name.
func (c *Client) AppendFile(ctx context.Context, pageID, name, url string) error {
	return c.appendBlocks(ctx, pageID, []Block{FileBlock(name, url)})
}

func (c *Client) appendBlocks(ctx context.Context, pageID string, blocks []Block) error {
	for start := 0; start < len(blocks); start += maxBlocksPerAppend {
		end := min(start+maxBlocksPerAppend, len(blocks))
		reqBody := AppendChildrenRequest{Children: blocks[start:end]}
		if err := c.do(ctx, http.MethodPatch, "/v1/blocks/"+pageID+"/children", reqBody, nil); err != nil {
			return fmt.Errorf("notion: append blocks to %s: %w", pageID, err)
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w: %v", apperr.ErrRemote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned status %d: %s: %w", resp.StatusCode, msg, apperr.ErrRemote)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w: %v", apperr.ErrRemote, err)
		}
	}
	return nil
}
