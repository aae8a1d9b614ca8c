package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	appfs "github.com/trezcool/lumina/fs"
	"github.com/trezcool/lumina/storage/seed"
)

// seed applies the catalog in `file`, or the bundled one if `file` is empty.
func (cli *commandLine) seed(file string) error {
	var (
		cat seed.Catalog
		err error
	)
	if file == "" {
		cat, err = seed.Load(appfs.FS, seed.DefaultPath)
	} else {
		var data []byte
		if data, err = os.ReadFile(file); err != nil {
			return errors.Wrap(err, "reading seed file")
		}
		cat, err = seed.Parse(data)
	}
	if err != nil {
		return err
	}

	res, err := cli.seeder.Apply(context.Background(), cat)
	if err != nil {
		return err
	}
	fmt.Printf("seeded %d course(s), %d announcement(s), %d post(s)\n", res.Courses, res.Announcements, res.Posts)
	return nil
}
