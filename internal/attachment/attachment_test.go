package attachment

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"

	"recordvault/internal/identity"
	"recordvault/pkg/requestcontext"

	id "recordvault/pkg/domain"
	dErrors "recordvault/pkg/domain-errors"
)

type AttachmentSuite struct {
	suite.Suite
	facade *Facade
	owner  id.OwnerID
	other  id.OwnerID
	path   Path
}

func TestAttachmentSuite(t *testing.T) {
	suite.Run(t, new(AttachmentSuite))
}

func (s *AttachmentSuite) SetupTest() {
	s.facade = NewFacade(NewBlobStore(afero.NewMemMapFs()), nil, slog.Default())
	s.owner = id.NewOwnerID()
	s.other = id.NewOwnerID()
	s.path = Path{OwnerID: s.owner, RecordID: id.NewRecordID(), Filename: "file.png"}
}

func (s *AttachmentSuite) ctxAs(ownerID id.OwnerID) context.Context {
	return requestcontext.WithIdentity(context.Background(), identity.Authenticated(ownerID))
}

func (s *AttachmentSuite) TestParsePath() {
	s.Run("valid path round-trips", func() {
		p, err := ParsePath(s.path.String())
		s.Require().NoError(err)
		s.Equal(s.path, p)
	})

	s.Run("wrong segment count", func() {
		_, err := ParsePath(s.owner.String() + "/file.png")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("malformed ids", func() {
		_, err := ParsePath("abc/rec1/file.png")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("traversal filename", func() {
		_, err := ParsePath(s.owner.String() + "/" + id.NewRecordID().String() + "/..")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *AttachmentSuite) TestUpload() {
	s.Run("owner uploads and downloads", func() {
		err := s.facade.Upload(s.ctxAs(s.owner), s.path, "image/png", strings.NewReader("png bytes"))
		s.Require().NoError(err)

		rc, err := s.facade.Download(s.ctxAs(s.owner), s.path)
		s.Require().NoError(err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		s.Require().NoError(err)
		s.Equal("png bytes", string(data))
	})

	s.Run("path owned by someone else is denied", func() {
		err := s.facade.Upload(s.ctxAs(s.other), s.path, "image/png", strings.NewReader("x"))
		s.True(dErrors.HasCode(err, dErrors.CodeAccessDenied))
	})

	s.Run("anonymous callers are denied", func() {
		err := s.facade.Upload(context.Background(), s.path, "image/png", strings.NewReader("x"))
		s.True(dErrors.HasCode(err, dErrors.CodeAccessDenied))
	})

	s.Run("unsupported content type is rejected", func() {
		err := s.facade.Upload(s.ctxAs(s.owner), s.path, "text/html", strings.NewReader("<html>"))
		s.True(dErrors.HasCode(err, dErrors.CodePayloadRejected))
	})

	s.Run("oversized body is rejected before persisting", func() {
		oversized := Path{OwnerID: s.owner, RecordID: id.NewRecordID(), Filename: "big.pdf"}
		big := bytes.Repeat([]byte{0xAB}, 12<<20)
		err := s.facade.Upload(s.ctxAs(s.owner), oversized, "application/pdf", bytes.NewReader(big))
		s.True(dErrors.HasCode(err, dErrors.CodePayloadRejected))

		_, err = s.facade.Download(s.ctxAs(s.owner), oversized)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "nothing may be persisted")
	})

	s.Run("body at exactly the limit is accepted", func() {
		exact := bytes.Repeat([]byte{0x01}, MaxBlobSize)
		err := s.facade.Upload(s.ctxAs(s.owner), s.path, "application/pdf", bytes.NewReader(exact))
		s.Require().NoError(err)
	})
}

func (s *AttachmentSuite) TestDownloadAndDelete() {
	s.Require().NoError(
		s.facade.Upload(s.ctxAs(s.owner), s.path, "image/webp", strings.NewReader("webp")))

	s.Run("non-owner download is denied, not masked", func() {
		_, err := s.facade.Download(s.ctxAs(s.other), s.path)
		s.True(dErrors.HasCode(err, dErrors.CodeAccessDenied))
	})

	s.Run("missing blob is not found", func() {
		missing := Path{OwnerID: s.owner, RecordID: id.NewRecordID(), Filename: "gone.png"}
		_, err := s.facade.Download(s.ctxAs(s.owner), missing)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("owner deletes, second delete is not found", func() {
		s.Require().NoError(s.facade.Delete(s.ctxAs(s.owner), s.path))

		err := s.facade.Delete(s.ctxAs(s.owner), s.path)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
