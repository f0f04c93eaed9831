package catalog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ConfigOpenError wraps a failure to open a config file during parsing.
type ConfigOpenError struct {
	Path string
	Err  error
}

func (e *ConfigOpenError) Error() string {
	return fmt.Sprintf("open ssh config %s: %v", e.Path, e.Err)
}

func (e *ConfigOpenError) Unwrap() error { return e.Err }

// Load parses rootPath and its recursive Include graph into a Tree.
//
// Cycles are broken by a canonicalized-path visited set: a file that has
// already been parsed (even via a different include chain) contributes no
// hosts the second time and produces no duplicate folder.
func Load(rootPath string) (*Tree, error) {
	rootPath = expandUserAndEnv(rootPath)

	var hosts []Host
	visited := make(map[string]bool)
	var nextID FolderID

	root, err := parseFolder(rootPath, filepath.Base(rootPath), &hosts, visited, &nextID)
	if err != nil {
		return nil, err
	}
	if root == nil {
		// Root itself was somehow already visited (impossible on first call,
		// but keep the tree well-formed rather than returning nil).
		root = &Folder{ID: 0, Name: filepath.Base(rootPath), Path: rootPath}
	}

	sortFolder(root, hosts)
	return &Tree{Root: root, Hosts: hosts}, nil
}

// parseFolder parses one file and recursively its Include targets, appending
// discovered hosts to hosts in discovery order.
func parseFolder(path, name string, hosts *[]Host, visited map[string]bool, nextID *FolderID) (*Folder, error) {
	canonical := path
	if abs, err := filepath.Abs(path); err == nil {
		canonical = abs
	}
	if resolved, err := filepath.EvalSymlinks(canonical); err == nil {
		canonical = resolved
	}

	if visited[canonical] {
		return nil, nil
	}
	visited[canonical] = true

	parsed, err := parseFile(canonical)
	if err != nil {
		return nil, &ConfigOpenError{Path: canonical, Err: err}
	}

	folder := &Folder{
		ID:   *nextID,
		Name: name,
		Path: canonical,
	}
	*nextID++

	for _, h := range parsed.hosts {
		h.Source = canonical
		folder.HostIndices = append(folder.HostIndices, len(*hosts))
		*hosts = append(*hosts, h)
	}

	parentDir := filepath.Dir(canonical)
	for _, pattern := range parsed.includePatterns {
		for _, includePath := range expandIncludePattern(pattern, parentDir) {
			childName := filepath.Base(includePath)
			child, err := parseFolder(includePath, childName, hosts, visited, nextID)
			if err != nil {
				// A malformed include target is skipped, not fatal to the parse.
				continue
			}
			if child != nil {
				folder.Children = append(folder.Children, child)
			}
		}
	}

	return folder, nil
}

type parsedFile struct {
	hosts            []Host
	includePatterns  []string
}

func validPassKeyName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '.' || r == '_' || r == '-') {
			return false
		}
	}
	return true
}

// parseFile reads one SSH config file and returns the hosts it declares
// (wildcards and #_hidden hosts dropped) plus its Include tokens.
func parseFile(path string) (*parsedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := &parsedFile{}
	var current []*Host

	flush := func() {
		for _, h := range current {
			if strings.ContainsAny(h.Name, "*?") || h.Hidden {
				continue
			}
			out.hosts = append(out.hosts, *h)
		}
		current = nil
	}

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			applyDirective(line, current)
			continue
		}

		keyword, value, ok := splitKeyVal(line)
		if !ok {
			continue
		}
		lk := strings.ToLower(keyword)

		switch lk {
		case "host":
			flush()
			for _, alias := range strings.Fields(value) {
				current = append(current, newHost(alias))
			}
			if len(current) == 0 {
				current = append(current, newHost(value))
			}
		case "hostname":
			for _, h := range current {
				h.Hostname = value
			}
		case "user":
			for _, h := range current {
				h.User = value
			}
		case "port":
			if p, err := strconv.Atoi(value); err == nil && p >= 1 && p <= 65535 {
				for _, h := range current {
					h.Port = p
				}
			}
		case "identityfile":
			expanded := expandUserAndEnv(value)
			for _, h := range current {
				h.IdentityFile = expanded
			}
		case "proxyjump":
			for _, h := range current {
				h.ProxyJump = value
			}
		case "localforward":
			for _, h := range current {
				h.LocalForward = append(h.LocalForward, value)
			}
		case "remoteforward":
			for _, h := range current {
				h.RemoteForward = append(h.RemoteForward, value)
			}
		case "include":
			out.includePatterns = append(out.includePatterns, strings.Fields(value)...)
		default:
			for _, h := range current {
				h.Options[lk] = value
			}
		}
	}
	flush()

	return out, sc.Err()
}

// applyDirective handles the #_Desc / #_Profile / #_pass / #_hidden comment
// annotations, applying them to every alias currently open in the stanza.
func applyDirective(line string, current []*Host) {
	switch {
	case hasDirective(line, "#_Desc"):
		desc := strings.TrimSpace(line[len("#_Desc"):])
		for _, h := range current {
			h.Description = desc
		}
	case hasDirective(line, "#_Profile"):
		profile := strings.TrimSpace(line[len("#_Profile"):])
		for _, h := range current {
			h.Profile = profile
		}
	case hasDirective(line, "#_pass"):
		key := strings.TrimSpace(line[len("#_pass"):])
		for _, h := range current {
			if validPassKeyName(key) {
				h.PassKey = key
			} else {
				h.PassKey = ""
			}
		}
	case hasDirective(line, "#_hidden"):
		val := strings.ToLower(strings.TrimSpace(line[len("#_hidden"):]))
		hidden := val == "true" || val == "yes" || val == "1"
		for _, h := range current {
			h.Hidden = hidden
		}
	}
}

func hasDirective(line, directive string) bool {
	if !strings.HasPrefix(line, directive) {
		return false
	}
	rest := line[len(directive):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

func splitKeyVal(line string) (key, val string, ok bool) {
	i := strings.IndexFunc(line, func(r rune) bool { return r == ' ' || r == '\t' || r == '=' })
	if i < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:i])
	val = strings.TrimSpace(line[i+1:])
	if key == "" || val == "" {
		return "", "", false
	}
	return key, val, true
}

func expandIncludePattern(pattern, parentDir string) []string {
	pattern = expandUserAndEnv(pattern)
	if pattern == "" {
		return nil
	}
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(parentDir, pattern)
	}
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return nil
	}
	sort.Strings(matches)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && !fi.IsDir() {
			out = append(out, m)
		}
	}
	return out
}

func expandUserAndEnv(p string) string {
	if p == "" {
		return ""
	}
	p = os.ExpandEnv(p)
	if p == "~" {
		if h, _ := os.UserHomeDir(); h != "" {
			return h
		}
		return p
	}
	if strings.HasPrefix(p, "~/") {
		if h, _ := os.UserHomeDir(); h != "" {
			return filepath.Join(h, p[2:])
		}
	}
	return p
}

func sortFolder(folder *Folder, hosts []Host) {
	sort.SliceStable(folder.HostIndices, func(i, j int) bool {
		a, b := hosts[folder.HostIndices[i]].Name, hosts[folder.HostIndices[j]].Name
		al, bl := strings.ToLower(a), strings.ToLower(b)
		if al != bl {
			return al < bl
		}
		return a < b
	})
	for _, child := range folder.Children {
		sortFolder(child, hosts)
	}
	sort.SliceStable(folder.Children, func(i, j int) bool {
		a, b := folder.Children[i].Name, folder.Children[j].Name
		al, bl := strings.ToLower(a), strings.ToLower(b)
		if al != bl {
			return al < bl
		}
		return a < b
	})
}

// DefaultPath returns the canonical primary OpenSSH client config path,
// $HOME/.ssh/config.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ssh", "config"), nil
}

// LoadDefault loads the tree rooted at $HOME/.ssh/config.
func LoadDefault() (*Tree, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}
