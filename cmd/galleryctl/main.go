package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/imagegallery/internal/client"
	"github.com/imagegallery/internal/form"
	"github.com/imagegallery/internal/logging"
	"github.com/imagegallery/internal/notify"
	"github.com/imagegallery/internal/validation"
	log "github.com/sirupsen/logrus"
)

const usage = `usage: galleryctl [-server URL] <command> [flags]

commands:
  add   -file PATH -title TITLE -description TEXT
  list  [-page N]
`

func main() {
	server := flag.String("server", envOr("GALLERY_SERVER", "http://localhost:8080"), "gallery server base url")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "info"), "log level")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger := logging.New(*logLevel, "text", os.Stderr)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(*server)
	defer c.Close()

	var err error
	switch flag.Arg(0) {
	case "add":
		err = runAdd(ctx, c, logger, flag.Args()[1:])
	case "list":
		err = runList(ctx, c, flag.Args()[1:])
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.WithError(err).Error(flag.Arg(0) + " failed")
		os.Exit(1)
	}
}

// runAdd 走与网页表单相同的提交流程：校验、上传、登记、失效缓存
func runAdd(ctx context.Context, c *client.Client, logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	path := fs.String("file", "", "image file to upload")
	title := fs.String("title", "", "image title")
	description := fs.String("description", "", "image description")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f := form.New()
	f.Values.Title = *title
	f.Values.Description = *description

	if *path != "" {
		info, err := client.InspectFile(*path)
		if err != nil {
			return err
		}
		f.SetFile(info)
	}

	if errs := f.Validate(); len(errs) > 0 {
		printErrors(errs)
		return errs
	}

	uploadCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	upload, err := c.UploadFile(uploadCtx, *path, *f.Values.File)
	cancel()
	if err != nil {
		// 上传失败时照常提交，由提交流程给出警告
		logger.WithError(err).Warn("upload failed")
	} else {
		f.SetUploaded(upload.URL, "")
	}

	submitter := form.NewSubmitter(c, c, notify.LogNotifier{Logger: logger}, logger)
	outcome, err := submitter.Submit(ctx, f)
	logger.WithField("outcome", outcome.String()).Debug("submission finished")
	return err
}

func runList(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := c.ListImages(ctx, *page)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCREATED\tURL")
	for _, img := range result.Items {
		created := time.UnixMilli(img.Ts).Format(time.RFC3339)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", img.ID, img.Title, created, img.URL)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("page %d of %d (%d images)\n", result.Page, result.TotalPages, result.Total)
	return nil
}

func printErrors(errs validation.Errors) {
	for _, field := range []string{validation.FieldFile, validation.FieldTitle, validation.FieldDescription} {
		if msg, ok := errs[field]; ok {
			fmt.Fprintf(os.Stderr, "%s: %s\n", field, msg)
		}
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
