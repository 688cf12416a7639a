package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// errInputClosed ends the menu when stdin runs out.
var errInputClosed = errors.New("input closed")

// menu shows the options until Exit is picked or input ends. A failed
// action is logged and the menu comes back.
func (a *app) menu(ctx context.Context, in io.Reader, out io.Writer) error {
	p := &prompter{sc: bufio.NewScanner(in), out: out}

	for {
		fmt.Fprintln(out, "\n\033[1;35m  F95Zone Crawler\033[0m")
		fmt.Fprintln(out, "  1) Crawl games list")
		fmt.Fprintln(out, "  2) Crawl thread details")
		fmt.Fprintln(out, "  3) Crawl missing threads")
		fmt.Fprintln(out, "  4) Export")
		fmt.Fprintln(out, "  5) Verify")
		fmt.Fprintln(out, "  6) Exit")

		choice, err := p.ask("Select an option", "")
		if err != nil {
			return nil
		}

		switch choice {
		case "6":
			return nil
		case "1", "2", "3", "4", "5":
			err = a.menuAction(ctx, p, choice)
		case "":
			continue
		default:
			fmt.Fprintf(out, "  Unknown option %q\n", choice)
			continue
		}

		if errors.Is(err, errInputClosed) {
			return nil
		}
		if err != nil {
			a.logger.Error("%v", err)
		}
	}
}

func (a *app) menuAction(ctx context.Context, p *prompter, choice string) error {
	switch choice {
	case "1":
		return a.crawlList(ctx, a.cfg.Delay(), a.cfg.RateLimitDelay())
	case "2":
		id, err := p.askInt("Thread ID", "", 1)
		if err != nil {
			return err
		}
		return a.crawlThread(ctx, id)
	case "3":
		delay, err := p.askInt("Delay between requests (ms)", strconv.Itoa(a.cfg.DelayMs), 0)
		if err != nil {
			return err
		}
		retry, err := p.askInt("Delay after 429 (ms)", strconv.Itoa(a.cfg.RateLimitDelayMs), 0)
		if err != nil {
			return err
		}
		return a.crawlMissing(ctx, millis(int(delay)), millis(int(retry)))
	case "4":
		return a.export(ctx, a.cfg.ExportPath, "")
	default:
		return a.verify(ctx)
	}
}

type prompter struct {
	sc  *bufio.Scanner
	out io.Writer
}

// ask returns the trimmed answer, or def on an empty line. It fails only
// when input is exhausted.
func (p *prompter) ask(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "  %s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "  %s: ", label)
	}
	if !p.sc.Scan() {
		return "", errInputClosed
	}
	if v := strings.TrimSpace(p.sc.Text()); v != "" {
		return v, nil
	}
	return def, nil
}

// askInt repeats the question until the answer is an integer >= min.
func (p *prompter) askInt(label, def string, min int64) (int64, error) {
	for {
		v, err := p.ask(label, def)
		if err != nil {
			return 0, err
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err == nil && n >= min {
			return n, nil
		}
		if min > 0 {
			fmt.Fprintf(p.out, "  %s must be a positive integer\n", label)
		} else {
			fmt.Fprintf(p.out, "  %s must be a non-negative integer\n", label)
		}
	}
}
