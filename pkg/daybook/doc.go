// Package daybook turns agent session logs into one markdown memory file
// per active day.
//
// Quick start:
//
//	d, err := daybook.New(
//	    daybook.WithSessionsDir("~/.agent/sessions"),
//	    daybook.WithMemoryDir("memory/"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cov, _ := d.Compare(ctx)
//	fmt.Printf("%.1f%% covered, %d days missing\n", cov.Percent, len(cov.Missing))
//
//	res, _ := d.Backfill(ctx, daybook.AllMissing(), daybook.WriteOptions{})
//	fmt.Println(res.Created, "files written")
//
// Every string a Daybook returns or writes has been through its sanitizer.
// A Daybook is safe for sequential reuse; it assumes it is the only writer
// of its memory directory and state file.
package daybook
