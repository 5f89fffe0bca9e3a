package magic_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hsiuhsiu/magic-go/pkg/magic"
	"github.com/hsiuhsiu/magic-go/pkg/magic/logging"
	"github.com/hsiuhsiu/magic-go/pkg/magic/magictest"
)

func Example() {
	m, err := magic.Open(magic.Config{
		Flags:  magic.MimeType,
		Engine: magictest.New(),
		Logger: logging.Discard(),
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	defer m.Close()

	if err := m.LoadBuffers(magictest.Compiled(magictest.Database())); err != nil {
		fmt.Println(err)
		return
	}
	mime, _ := m.Buffer(magictest.PNG)
	fmt.Println(mime)

	m.Close()
	_, err = m.Buffer(magictest.PNG)
	fmt.Println(errors.Is(err, magic.ErrClosed))
	// Output:
	// image/png
	// true
}

func ExampleNewPool() {
	dir, err := os.MkdirTemp("", "gomagic")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer os.RemoveAll(dir)
	db := filepath.Join(dir, "images.mgc")
	if err := os.WriteFile(db, magictest.Compiled(magictest.Database()), 0o600); err != nil {
		fmt.Println(err)
		return
	}

	p, err := magic.NewPool(2, magic.Config{
		Engine:   magictest.New(),
		Database: []string{db},
		Logger:   logging.Discard(),
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	defer p.Close()

	desc, _ := p.Buffer(context.Background(), magictest.PNG)
	fmt.Println(desc)
	// Output:
	// PNG image data
}

func ExampleParseFlags() {
	f, _ := magic.ParseFlags("mime_type|symlink")
	fmt.Println(f)
	fmt.Println(f&magic.Symlink != 0)
	// Output:
	// symlink|mime_type
	// true
}
