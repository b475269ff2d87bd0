package mail

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/tigerroll/foottraffic/pkg/batch/adapter/storage"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/exception"
	"github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

var nameDate = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)

// DirectorySource reads manually downloaded reports from a storage connection.
//
// Every .xlsx object under the prefix is a candidate. A YYYY-MM-DD date in the file name is
// taken as the day the report was received (noon, in loc); otherwise the object's
// modification time is used.
type DirectorySource struct {
	conn   storage.StorageConnection
	prefix string
	loc    *time.Location
}

// NewDirectorySource creates a DirectorySource.
func NewDirectorySource(conn storage.StorageConnection, prefix string, loc *time.Location) *DirectorySource {
	if loc == nil {
		loc = time.UTC
	}
	return &DirectorySource{conn: conn, prefix: prefix, loc: loc}
}

// Fetch reads the candidate workbooks received inside w.
func (s *DirectorySource) Fetch(ctx context.Context, w Window) ([]Attachment, error) {
	var infos []storage.ObjectInfo
	err := s.conn.ListObjects(ctx, "", s.prefix, func(info storage.ObjectInfo) error {
		if strings.HasSuffix(strings.ToLower(info.Name), ".xlsx") {
			infos = append(infos, info)
		}
		return nil
	})
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to list reports under '%s'", s.prefix), err, false, false)
	}

	var out []Attachment
	for _, info := range infos {
		received := s.receivedAt(info)
		if !w.Contains(received) {
			logger.Debugf("DirectorySource: %s received %s is outside the window.", info.Name, received.Format(time.RFC3339))
			continue
		}
		content, err := s.read(ctx, info.Name)
		if err != nil {
			return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to read report '%s'", info.Name), err, false, false)
		}
		out = append(out, Attachment{
			Name:       path.Base(info.Name),
			Content:    content,
			ReceivedAt: received,
			MessageID:  info.Name,
		})
	}
	logger.Infof("DirectorySource: %d reports found under '%s'.", len(out), s.prefix)
	return out, nil
}

func (s *DirectorySource) receivedAt(info storage.ObjectInfo) time.Time {
	if m := nameDate.FindStringSubmatch(path.Base(info.Name)); m != nil {
		if d, err := time.ParseInLocation("2006-01-02", m[1]+"-"+m[2]+"-"+m[3], s.loc); err == nil {
			return d.Add(12 * time.Hour)
		}
	}
	return info.ModTime
}

func (s *DirectorySource) read(ctx context.Context, name string) ([]byte, error) {
	rc, err := s.conn.Download(ctx, "", name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

var _ Source = (*DirectorySource)(nil)
