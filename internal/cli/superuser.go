package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mrlokans/catalog/internal/auth"
	"github.com/mrlokans/catalog/internal/config"
)

var errPasswordMismatch = errors.New("passwords didn't match")

func newCreateSuperuserCommand(cfg *config.Config) *cobra.Command {
	var email, username string

	cmd := &cobra.Command{
		Use:   "create-superuser",
		Short: "Create an administrator account",
		Long: `Create an administrator account. The password is prompted for twice;
when stdin is not a terminal it is read as two lines instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			if username == "" {
				username, _, _ = strings.Cut(email, "@")
			}

			prompt := newPasswordPrompt(cmd.InOrStdin(), cmd.ErrOrStderr())
			password, err := prompt.read("Password: ")
			if err != nil {
				return err
			}
			confirm, err := prompt.read("Password (again): ")
			if err != nil {
				return err
			}
			if password != confirm {
				return errPasswordMismatch
			}

			s, err := openStack(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			user, err := s.auth.CreateSuperuser(auth.RegisterInput{
				Email:    email,
				Username: username,
				Password: password,
			})
			if err != nil {
				return fmt.Errorf("failed to create superuser: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Superuser %s created (id %d)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address of the new administrator")
	cmd.Flags().StringVar(&username, "username", "", "Username, defaults to the email's local part")
	return cmd
}

// passwordPrompt masks input on a terminal and falls back to reading
// plain lines otherwise.
type passwordPrompt struct {
	in     io.Reader
	lines  *bufio.Reader
	prompt io.Writer
}

func newPasswordPrompt(in io.Reader, prompt io.Writer) *passwordPrompt {
	return &passwordPrompt{in: in, lines: bufio.NewReader(in), prompt: prompt}
}

func (p *passwordPrompt) read(label string) (string, error) {
	fmt.Fprint(p.prompt, label)

	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := p.lines.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}
