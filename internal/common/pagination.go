package common

import (
	"context"
	"fmt"

	"github.com/gravitational/trace"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

// GetPages requests a paginated collection window by window and returns
// every item it received. The server describes each window with a
// Content-Range header; a missing or malformed header means there is
// nothing else to fetch
func (proxy *Proxy) GetPages(ctx context.Context, request Request, unit string, pageSize int) ([]jsoniter.RawMessage, error) {

	if pageSize <= 0 {
		return nil, trace.BadParameter("page size must be positive, got %d", pageSize)
	}

	items := []jsoniter.RawMessage{}
	start := 0
	for {
		// Ask for the next window
		header := make(map[string]string, len(request.Header)+1)
		for key, value := range request.Header {
			header[key] = value
		}
		header["Range"] = fmt.Sprintf("%s=%d-%d", unit, start, start+pageSize-1)
		page := request
		page.Header = header

		response, err := proxy.Do(ctx, page)
		if err != nil {
			return nil, trace.Wrap(err)
		}

		var received []jsoniter.RawMessage
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(response.Body, &received); err != nil {
			return nil, trace.BadParameter("response from %s is not a list of %s: %v", request.URL, unit, err)
		}
		items = append(items, received...)

		// Find out how much is left
		contentRange, ok := ParseContentRange(response.Header.Get("Content-Range"))
		if !ok || contentRange.Unit != unit {
			log.Ctx(ctx).Debug().Str("url", request.URL).Int("items", len(items)).Msg("No content range in response, pagination finished")
			break
		}
		if len(items) >= contentRange.Total || contentRange.Last+1 >= contentRange.Total || contentRange.Last < start {
			break
		}
		start = contentRange.Last + 1
	}

	log.Ctx(ctx).Debug().Str("url", request.URL).Int("items", len(items)).Msg("Collected all pages")
	return items, nil
}
