package util

import (
	"fmt"
	"sync"

	"github.com/pelletier/go-toml"
)

var (
	tomlFilesLock sync.Mutex
	tomlFiles     = make(map[string]*toml.Tree)
)

func readTomlFile(filename string) (*toml.Tree, error) {
	tomlFilesLock.Lock()
	defer tomlFilesLock.Unlock()
	tree, ok := tomlFiles[filename]
	if ok {
		return tree, nil
	}
	tree, err := toml.LoadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error decoding file %q: %w", filename, err)
	}
	tomlFiles[filename] = tree
	return tree, nil
}

// ReadEntry returns the string value of the given top level entry of a toml file.
// Files are parsed once and cached.
func ReadEntry(filename, entry string) (string, error) {
	tree, err := readTomlFile(filename)
	if err != nil {
		return "", err
	}
	val := tree.Get(entry)
	if val == nil {
		return "", fmt.Errorf("could not find entry %q in file %q", entry, filename)
	}
	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("entry %q in file %q is a %T, not a string", entry, filename, val)
	}
	return str, nil
}
