package stt

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-shellwords"
)

// execRecognizer runs an external streaming recognizer and reads its
// results as JSON lines from stdout.
type execRecognizer struct {
	notifier

	cmd []string
	log *slog.Logger

	mu   sync.Mutex
	opts Options
	run  *execRun
}

type execRun struct {
	cancel context.CancelFunc
}

type execLine struct {
	Type        string       `json:"type"`
	ResultIndex int          `json:"result_index"`
	Results     []execResult `json:"results"`
	Transcript  string       `json:"transcript"`
	Final       *bool        `json:"final"`
	Confidence  float64      `json:"confidence"`
	Error       string       `json:"error"`
	Message     string       `json:"message"`
}

type execResult struct {
	Transcript string  `json:"transcript"`
	Text       string  `json:"text"`
	Final      bool    `json:"final"`
	Confidence float64 `json:"confidence"`
}

func NewExecRecognizer(command string, log *slog.Logger) (Recognizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse stt command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("stt command is empty")
	}
	return &execRecognizer{
		cmd: args,
		log: log.With(slog.String("component", "stt.exec")),
	}, nil
}

func (r *execRecognizer) Name() string { return "exec" }

func (r *execRecognizer) Available() bool {
	_, err := exec.LookPath(r.cmd[0])
	return err == nil
}

func (r *execRecognizer) Configure(opts Options) {
	r.mu.Lock()
	r.opts = opts
	r.mu.Unlock()
}

func (r *execRecognizer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.run != nil {
		return errAlreadyStarted
	}

	args := append([]string{}, r.cmd[1:]...)
	if r.opts.Continuous {
		args = append(args, "--continuous")
	}
	if r.opts.InterimResults {
		args = append(args, "--interim")
	}
	if r.opts.Language != "" {
		args = append(args, "--language", r.opts.Language)
	}

	ctx, cancel := context.WithCancel(context.Background())
	command := exec.CommandContext(ctx, r.cmd[0], args...)
	command.WaitDelay = 2 * time.Second
	stdout, err := command.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("stt stdout pipe: %w", err)
	}
	stderr, err := command.StderrPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("stt stderr pipe: %w", err)
	}
	if err := command.Start(); err != nil {
		cancel()
		return fmt.Errorf("start stt command: %w", err)
	}

	run := &execRun{cancel: cancel}
	r.run = run
	go r.supervise(ctx, run, command, stdout, stderr, r.opts.Continuous)
	r.log.Debug("stt command started", slog.Int("pid", command.Process.Pid))
	return nil
}

// Stop detaches the current run so Start can launch a fresh process right
// away, then ends the session. The old process is reaped in the background
// and nothing it emits afterwards is delivered.
func (r *execRecognizer) Stop() error {
	r.mu.Lock()
	run := r.run
	r.run = nil
	r.mu.Unlock()
	if run == nil {
		return nil
	}
	run.cancel()
	r.emitEnd()
	return nil
}

func (r *execRecognizer) current(run *execRun) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.run == run
}

func (r *execRecognizer) supervise(ctx context.Context, run *execRun, command *exec.Cmd, stdout, stderr io.Reader, continuous bool) {
	var logs sync.WaitGroup
	logs.Add(1)
	go func() {
		defer logs.Done()
		r.logLines(stderr)
	}()

	r.readLines(stdout, run, continuous)
	logs.Wait()
	waitErr := command.Wait()

	r.mu.Lock()
	owned := r.run == run
	if owned {
		r.run = nil
	}
	r.mu.Unlock()
	run.cancel()

	// A stopped run already reported its end from Stop.
	if !owned {
		return
	}
	if waitErr != nil && ctx.Err() == nil {
		r.emitError(ErrorEvent{Code: "process-exit", Message: waitErr.Error()})
	}
	r.emitEnd()
}

func (r *execRecognizer) readLines(stdout io.Reader, run *execRun, continuous bool) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		result, failure, ok := parseExecLine(line)
		if !ok || !r.current(run) {
			continue
		}
		if failure != nil {
			r.emitError(*failure)
			continue
		}
		r.emitResult(result)
		if !continuous && hasFinal(result) {
			run.cancel()
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		r.log.Warn("stt read error", slog.String("error", err.Error()))
	}
}

func (r *execRecognizer) logLines(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		r.log.Debug("stt stderr", slog.String("line", line))
	}
}

// parseExecLine decodes one stdout line. Non-JSON lines are treated as a
// single final result.
func parseExecLine(line string) (ResultEvent, *ErrorEvent, bool) {
	if !strings.HasPrefix(line, "{") {
		return ResultEvent{Results: []Result{{Text: line, Final: true}}}, nil, true
	}
	var msg execLine
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		return ResultEvent{Results: []Result{{Text: line, Final: true}}}, nil, true
	}
	if strings.EqualFold(msg.Type, "error") || msg.Error != "" {
		code := msg.Error
		if code == "" {
			code = "unknown"
		}
		return ResultEvent{}, &ErrorEvent{Code: code, Message: msg.Message}, true
	}
	if len(msg.Results) > 0 {
		evt := ResultEvent{ResultIndex: msg.ResultIndex}
		for _, res := range msg.Results {
			text := res.Transcript
			if text == "" {
				text = res.Text
			}
			evt.Results = append(evt.Results, Result{Text: text, Final: res.Final, Confidence: res.Confidence})
		}
		if evt.ResultIndex < 0 || evt.ResultIndex > len(evt.Results) {
			evt.ResultIndex = 0
		}
		return evt, nil, true
	}
	if text := strings.TrimSpace(msg.Transcript); text != "" {
		final := true
		if msg.Final != nil {
			final = *msg.Final
		}
		return ResultEvent{Results: []Result{{Text: text, Final: final, Confidence: msg.Confidence}}}, nil, true
	}
	return ResultEvent{}, nil, false
}

func hasFinal(evt ResultEvent) bool {
	for i := evt.ResultIndex; i < len(evt.Results); i++ {
		if evt.Results[i].Final {
			return true
		}
	}
	return false
}
