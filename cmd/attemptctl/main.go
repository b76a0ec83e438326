// attemptctl is a terminal client for the assessment API: it takes tests
// through a resumable session and runs Endless practice batches.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"assessment_backend/pkg/apiclient"
	"assessment_backend/pkg/endless"
	"assessment_backend/pkg/sessiondriver"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serverURL string
	token     string
	verbose   bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "assessment API base URL")
	rootCmd.PersistentFlags().StringVarP(&token, "token", "t", os.Getenv("ASSESSMENT_TOKEN"), "bearer token (defaults to $ASSESSMENT_TOKEN)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log autosave and transport details")

	takeCmd.Flags().StringP("mode", "m", string(apiclient.ModeTest), "Test or Practice")
	takeCmd.Flags().Duration("autosave", 30*time.Second, "autosave interval")
	endlessCmd.Flags().IntP("size", "n", endless.DefaultBatchSize, "questions per batch")

	rootCmd.AddCommand(takeCmd, activeCmd, abandonCmd, endlessCmd)
}

var rootCmd = &cobra.Command{
	Use:          "attemptctl",
	Short:        "take assessments from the terminal",
	SilenceUsage: true,
}

var takeCmd = &cobra.Command{
	Use:   "take <testId>",
	Short: "start or resume a session and answer it question by question",
	Args:  cobra.ExactArgs(1),
	RunE:  take,
}

var activeCmd = &cobra.Command{
	Use:   "active",
	Short: "list sessions that can be resumed",
	RunE:  active,
}

var abandonCmd = &cobra.Command{
	Use:   "abandon <sessionId>",
	Short: "abandon an active session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client().AbandonSession(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("session abandoned")
		return nil
	},
}

var endlessCmd = &cobra.Command{
	Use:   "endless",
	Short: "answer a random batch with live feedback",
	RunE:  runEndless,
}

func client() *apiclient.Client {
	return apiclient.New(serverURL, token)
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func active(cmd *cobra.Command, args []string) error {
	sessions, err := client().ListActiveSessions(cmd.Context())
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("no active sessions")
		return nil
	}
	for _, s := range sessions {
		fmt.Printf("%s  test=%s  mode=%s  answered=%d  remaining=%ds  saved=%s\n",
			s.ID, s.TestID, s.Mode, len(s.Answers), s.RemainingTime, s.LastSavedAt.Format(time.RFC3339))
	}
	return nil
}

func take(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	mode, _ := cmd.Flags().GetString("mode")
	interval, _ := cmd.Flags().GetDuration("autosave")
	log := newLogger()
	defer log.Sync()

	api := client()
	test, err := api.GetTest(ctx, args[0])
	if err != nil {
		return err
	}

	d := sessiondriver.New(api, test.ID, test.Questions, sessiondriver.Options{
		AutosaveInterval: interval,
		Logger:           log,
	})
	defer d.Close()

	resumed, err := d.Start(ctx, apiclient.Mode(mode))
	if err != nil {
		return err
	}
	st := d.State()
	if resumed {
		fmt.Printf("resumed session %s at question %d, %ds left\n", st.SessionID, st.CurrentQuestion+1, st.RemainingTime)
	} else {
		fmt.Printf("started session %s (%s), %ds budget\n", st.SessionID, st.Mode, st.RemainingTime)
	}
	fmt.Println("empty line keeps the current answer, :quit leaves without submitting")

	in := bufio.NewScanner(os.Stdin)
	for i := st.CurrentQuestion; i < len(test.Questions); i++ {
		if err := d.Navigate(i); err != nil {
			return err
		}
		q := test.Questions[i]
		fmt.Print(render(i, q))
		if cur := d.State(); cur.RemainingTime > 0 {
			fmt.Printf("(%ds left) > ", cur.RemainingTime)
		} else {
			fmt.Printf("(overdue %ds) > ", cur.OverdueSeconds)
		}
		if !in.Scan() {
			break
		}
		line := in.Text()
		if strings.TrimSpace(line) == ":quit" {
			if err := d.ConfirmLeave(); err != nil {
				// 服务端会话保持 active，之后可以继续
				res := d.Autosave(ctx)
				fmt.Printf("progress %s; resume later with `attemptctl take %s`\n", res.Outcome, test.ID)
			}
			return nil
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		answer, err := parseAnswer(q, line)
		if err != nil {
			fmt.Println(err)
			i--
			continue
		}
		if err := d.SetAnswer(i, answer); err != nil {
			if errors.Is(err, sessiondriver.ErrSessionEnded) {
				return fmt.Errorf("the session was submitted or abandoned elsewhere; run `attemptctl take %s` to start again", test.ID)
			}
			return err
		}
		if ok, err := d.Feedback(i); err == nil {
			fmt.Println(verdict(ok))
		}
	}

	res, err := d.Submit(ctx)
	if errors.Is(err, sessiondriver.ErrSessionEnded) {
		return fmt.Errorf("the session was submitted or abandoned elsewhere; run `attemptctl take %s` to start again", test.ID)
	}
	if err != nil {
		return fmt.Errorf("submit failed, the session is still open: %w", err)
	}
	fmt.Printf("\nscore %d/%d (%d%%), attempt %s\n", res.Score, res.Total, res.Percentage, res.Attempt.ID)
	if res.Attempt.OverdueTime > 0 {
		fmt.Printf("overdue by %ds\n", res.Attempt.OverdueTime)
	}
	return nil
}

func runEndless(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	size, _ := cmd.Flags().GetInt("size")
	log := newLogger()
	defer log.Sync()

	d := endless.New(client(), endless.Options{BatchSize: size, Logger: log})
	batch, err := d.Start(ctx)
	if err != nil {
		return err
	}
	fmt.Println(":end records the run early")

	in := bufio.NewScanner(os.Stdin)
	for i := 0; i < len(batch); i++ {
		q := batch[i].Question
		fmt.Print(render(i, q))
		fmt.Print("> ")
		if !in.Scan() || strings.TrimSpace(in.Text()) == ":end" {
			break
		}
		answer, err := parseAnswer(q, in.Text())
		if err != nil {
			fmt.Println(err)
			i--
			continue
		}
		fb, err := d.Answer(ctx, i, answer)
		if err != nil {
			return err
		}
		fmt.Println(verdict(fb.Correct))
		if fb.Result != nil {
			printEndless(fb.Result)
			return nil
		}
	}

	res, err := d.End(ctx)
	if err != nil {
		return err
	}
	printEndless(res)
	return nil
}

func printEndless(res *apiclient.SubmitResult) {
	fmt.Printf("\nendless run: %d/%d correct, attempt %s\n", res.Score, res.Total, res.Attempt.ID)
}

func verdict(ok bool) string {
	if ok {
		return "correct"
	}
	return "incorrect"
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
