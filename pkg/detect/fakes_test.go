package detect

import "path"

type fakeFiles map[string]bool

func (f fakeFiles) Find(dir, pattern string) (string, bool) {
	p := path.Join(dir, pattern)
	return p, f[p]
}

func (f fakeFiles) FindAll(dir, pattern string) []string {
	if p, ok := f.Find(dir, pattern); ok {
		return []string{p}
	}
	return nil
}

type fakeExecutables map[string]string

func (f fakeExecutables) Resolve(name string) (string, bool) {
	p, ok := f[name]
	return p, ok
}

func testEnv(files fakeFiles, exes fakeExecutables) *Environment {
	return &Environment{Dir: "/src", Root: "/src", Files: files, Executables: exes}
}
