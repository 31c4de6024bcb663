package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/md-rashed-zaman/barberbook/libs/auth"
	"github.com/md-rashed-zaman/barberbook/services/booking-client/internal/account"
	"github.com/md-rashed-zaman/barberbook/services/booking-client/internal/api"
	"github.com/md-rashed-zaman/barberbook/services/booking-client/internal/availability"
	"github.com/md-rashed-zaman/barberbook/services/booking-client/internal/booking"
	"github.com/md-rashed-zaman/barberbook/services/booking-client/internal/session"
	"github.com/md-rashed-zaman/barberbook/services/booking-client/internal/validation"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

// Execute runs one command line. The app opened by the command is closed
// afterwards whether or not the command failed.
func Execute(ctx context.Context, args []string, out, errOut io.Writer) error {
	root, st := newRoot(out, errOut)
	root.SetArgs(args)
	return execute(ctx, root, st)
}

func execute(ctx context.Context, root *cobra.Command, st *rootState) error {
	err := root.ExecuteContext(ctx)
	if st.app != nil {
		if cerr := st.app.Close(context.WithoutCancel(ctx)); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	return err
}

type rootState struct {
	app *app
}

// newRoot builds the booking-client command tree. Command output goes to
// out; logs go to errOut.
func newRoot(out, errOut io.Writer) (*cobra.Command, *rootState) {
	st := &rootState{}

	root := &cobra.Command{
		Use:           "booking-client",
		Short:         "Book barber appointments from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			st.app, err = newApp(cmd.Context(), cfg, errOut)
			return err
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.String("api-url", "", "booking API base url")
	pf.String("store", "", "session store: file path, file://, sqlite://, redis:// or postgres:// dsn")
	pf.String("log-level", "", "debug, info, warn or error")
	pf.Duration("timeout", 0, "per-request timeout")
	pf.Bool("otel", false, "export traces over OTLP")

	get := func() *app { return st.app }
	root.AddCommand(
		signInCommand(get),
		signOutCommand(get),
		whoAmICommand(get),
		signUpCommand(get),
		providersCommand(get),
		availabilityCommand(get),
		bookCommand(get),
		profileCommand(get),
		avatarCommand(get),
	)
	return root, st
}

func signInCommand(get func() *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := get().sessions.SignIn(cmd.Context(), email, password)
			if err != nil {
				if errors.Is(err, session.ErrAuthenticationFailed) {
					return notice("Erro na autenticação", "Ocorreu um erro ao fazer login, cheque as credenciais.", err)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Bem-vindo, %s\n", sess.User.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "e-mail")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func signOutCommand(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := get().sessions.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sessão encerrada")
			return nil
		},
	}
}

func whoAmICommand(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, ok := get().sessions.Current()
			w := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintln(w, "Nenhuma sessão ativa")
				return nil
			}
			fmt.Fprintf(w, "%s <%s> (%s)\n", sess.User.Name, sess.User.Email, sess.User.ID)
			if sess.User.AvatarURL != "" {
				fmt.Fprintf(w, "avatar: %s\n", sess.User.AvatarURL)
			}
			// Opaque tokens are fine; expiry is only shown when the token is a JWT.
			if claims, err := auth.ParseJWTNoVerify(sess.Token); err == nil && claims.Exp > 0 {
				exp := claims.ExpiresAt()
				if exp.Before(time.Now()) {
					fmt.Fprintf(w, "token expirou em: %s\n", exp.Local().Format(time.RFC3339))
				} else {
					fmt.Fprintf(w, "token expira em: %s\n", exp.Local().Format(time.RFC3339))
				}
			}
			return nil
		},
	}
}

func signUpCommand(get func() *app) *cobra.Command {
	var form account.SignUpForm
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := get().accounts.SignUp(cmd.Context(), form); err != nil {
				return formError(err, "Erro no cadastro", "Ocorreu um erro ao fazer o cadastro, tente novamente.")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cadastro realizado com sucesso! Você já pode fazer seu login no GoBarber!")
			return nil
		},
	}
	cmd.Flags().StringVar(&form.Name, "name", "", "name")
	cmd.Flags().StringVar(&form.Email, "email", "", "e-mail")
	cmd.Flags().StringVar(&form.Password, "password", "", "password (at least 6 characters)")
	return cmd
}

func providersCommand(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:     "providers",
		Aliases: []string{"dashboard"},
		Short:   "List barbers",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			if err := requireSession(a); err != nil {
				return err
			}
			providers, err := a.client.ListProviders(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNOME\tDIAS\tHORÁRIO")
			for _, p := range providers {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, booking.ProviderDays, booking.ProviderHours)
			}
			return tw.Flush()
		},
	}
}

type dayFlags struct {
	provider string
	date     string
}

func (d *dayFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&d.provider, "provider", "", "provider id")
	cmd.Flags().StringVar(&d.date, "date", "", "day as YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("provider")
}

func (d *dayFlags) flow(a *app) (*booking.Flow, error) {
	day := time.Now()
	if d.date != "" {
		parsed, err := time.ParseInLocation(dateLayout, d.date, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", d.date)
		}
		day = parsed
	}
	return booking.NewFlow(a.client, d.provider, day, a.logger), nil
}

func availabilityCommand(get func() *app) *cobra.Command {
	var df dayFlags
	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Show a barber's free hours for a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			if err := requireSession(a); err != nil {
				return err
			}
			flow, err := df.flow(a)
			if err != nil {
				return err
			}
			if err := flow.LoadAvailability(cmd.Context()); err != nil {
				return err
			}
			slots := flow.Slots()
			w := cmd.OutOrStdout()
			printSlots(w, "Manhã", slots.Morning)
			printSlots(w, "Tarde", slots.Afternoon)
			return nil
		},
	}
	df.register(cmd)
	return cmd
}

func printSlots(w io.Writer, title string, slots []availability.SelectableSlot) {
	labels := make([]string, 0, len(slots))
	for _, s := range slots {
		label := s.Label
		if !s.Available {
			label += " (ocupado)"
		}
		if s.Selected {
			label = "[" + label + "]"
		}
		labels = append(labels, label)
	}
	if len(labels) == 0 {
		labels = append(labels, "-")
	}
	fmt.Fprintf(w, "%s: %s\n", title, strings.Join(labels, "  "))
}

func bookCommand(get func() *app) *cobra.Command {
	var (
		df   dayFlags
		hour int
	)
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book an hour with a barber",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			if err := requireSession(a); err != nil {
				return err
			}
			flow, err := df.flow(a)
			if err != nil {
				return err
			}
			if err := flow.LoadAvailability(cmd.Context()); err != nil {
				return err
			}
			if err := flow.SelectHour(hour); err != nil {
				return err
			}
			at, err := flow.Create(cmd.Context())
			if err != nil {
				if errors.Is(err, api.ErrRemoteOperationFailed) {
					return notice("Erro ao criar agendamento", "Ocorreu um erro ao tentar criar o agendamento, tente novamente.", err)
				}
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Agendamento concluído")
			fmt.Fprintln(w, booking.Confirmation(at))
			return nil
		},
	}
	df.register(cmd)
	cmd.Flags().IntVar(&hour, "hour", booking.NoHour, "hour to book, e.g. 14")
	_ = cmd.MarkFlagRequired("hour")
	return cmd
}

func profileCommand(get func() *app) *cobra.Command {
	var form account.ProfileForm
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update name, e-mail or password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			current, ok := a.sessions.Current()
			if !ok {
				return session.ErrNotAuthenticated
			}
			if !cmd.Flags().Changed("name") {
				form.Name = current.User.Name
			}
			if !cmd.Flags().Changed("email") {
				form.Email = current.User.Email
			}
			user, err := a.accounts.UpdateProfile(cmd.Context(), form)
			if err != nil {
				return formError(err, "Erro na atualização do perfil", "Ocorreu um erro ao atualizar o perfil, tente novamente.")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Perfil atualizado com sucesso! %s <%s>\n", user.Name, user.Email)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&form.Name, "name", "", "new name")
	f.StringVar(&form.Email, "email", "", "new e-mail")
	f.StringVar(&form.OldPassword, "old-password", "", "current password, required to change it")
	f.StringVar(&form.NewPassword, "new-password", "", "new password")
	f.StringVar(&form.PasswordConfirmation, "confirm-password", "", "new password again")
	return cmd
}

func avatarCommand(get func() *app) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "avatar",
		Short: "Upload a new avatar image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, uploaded, err := get().accounts.ChangeAvatar(cmd.Context(), account.FilePicker{Path: path})
			if err != nil {
				if errors.Is(err, account.ErrAvatarUpdateFailed) {
					return notice("Erro ao atualizar o avatar", "", err)
				}
				return err
			}
			if !uploaded {
				fmt.Fprintln(cmd.OutOrStdout(), "Nenhuma imagem selecionada")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Avatar atualizado: %s\n", user.AvatarURL)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "file", "", "image file; empty cancels")
	return cmd
}

func requireSession(a *app) error {
	if _, ok := a.sessions.Current(); !ok {
		return session.ErrNotAuthenticated
	}
	return nil
}

// Notice is a user-facing failure: a title and a hint, with the cause kept
// for errors.Is and the logs.
type Notice struct {
	Title  string
	Detail string
	Err    error
}

func notice(title, detail string, err error) error {
	return &Notice{Title: title, Detail: detail, Err: err}
}

func (n *Notice) Error() string {
	if n.Detail == "" {
		return n.Title
	}
	return n.Title + ": " + n.Detail
}

func (n *Notice) Unwrap() error { return n.Err }

// formError passes validation errors through as is so each field message is
// shown, and turns anything else into a Notice.
func formError(err error, title, detail string) error {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return verr
	}
	return notice(title, detail, err)
}
