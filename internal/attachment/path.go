// Package attachment manages owner-scoped binary blobs attached to records.
// Every blob lives under a path that names its owner, so authorization is a
// pure comparison between the caller and the path.
package attachment

import (
	"strings"

	id "recordvault/pkg/domain"
	dErrors "recordvault/pkg/domain-errors"
)

// Path addresses one blob as {ownerID}/{recordID}/{filename}. The owner
// segment is authoritative for access control.
type Path struct {
	OwnerID  id.OwnerID
	RecordID id.RecordID
	Filename string
}

// ParsePath validates the three-segment form. The filename must be a plain
// name: no separators, no traversal.
func ParsePath(raw string) (Path, error) {
	parts := strings.Split(raw, "/")
	if len(parts) != 3 {
		return Path{}, dErrors.New(dErrors.CodeBadRequest, "attachment path must be ownerId/recordId/filename")
	}

	ownerID, err := id.ParseOwnerID(parts[0])
	if err != nil {
		return Path{}, err
	}
	recordID, err := id.ParseRecordID(parts[1])
	if err != nil {
		return Path{}, err
	}

	filename := parts[2]
	if filename == "" || filename == "." || filename == ".." || strings.ContainsAny(filename, `/\`) {
		return Path{}, dErrors.New(dErrors.CodeBadRequest, "invalid attachment filename")
	}

	return Path{OwnerID: ownerID, RecordID: recordID, Filename: filename}, nil
}

func (p Path) String() string {
	return p.OwnerID.String() + "/" + p.RecordID.String() + "/" + p.Filename
}
