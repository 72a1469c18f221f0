package install

import (
	"bytes"
	"encoding/json"
	"io"
)

// ownershipManifestEntry is the wire shape the chroot helper subprocess
// reads on stdin: just enough of a FileEntry to repeat ownership
// application once re-exec'd inside rootdir.
type ownershipManifestEntry struct {
	Path   string `json:"path"`
	Mode   uint32 `json:"mode"`
	Owner  string `json:"owner"`
	Group  string `json:"group"`
	Type   int    `json:"type"`
	Action int    `json:"action"`
}

func ownershipManifest(files []FileEntry) *bytes.Reader {
	entries := make([]ownershipManifestEntry, len(files))
	for i, f := range files {
		entries[i] = ownershipManifestEntry{
			Path: f.Path, Mode: f.Mode, Owner: f.Owner, Group: f.Group,
			Type: int(f.Type), Action: int(f.Action),
		}
	}
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(entries)
	return bytes.NewReader(buf.Bytes())
}

// decodeOwnershipManifest is called by the chroot helper subcommand
// (cmd/rpminstall's "__apply-ownership" branch) to recover the file list
// from stdin.
func decodeOwnershipManifest(r io.Reader) ([]FileEntry, error) {
	var entries []ownershipManifestEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, err
	}
	files := make([]FileEntry, len(entries))
	for i, e := range entries {
		files[i] = FileEntry{
			Path: e.Path, Mode: e.Mode, Owner: e.Owner, Group: e.Group,
			Type: FileType(e.Type), Action: Action(e.Action),
		}
	}
	return files, nil
}
