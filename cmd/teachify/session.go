package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/teachify/teachify"
)

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in and persist the session token",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register <username>",
	Short: "Create a teacher account and log in",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the persisted session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Restore the persisted session and print the profile",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

var registerFlags struct {
	firstName string
	lastName  string
	phone     string
	role      string
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().String("password", "", "password (read from stdin when empty)")
	}
	registerCmd.Flags().StringVar(&registerFlags.firstName, "first-name", "", "first name")
	registerCmd.Flags().StringVar(&registerFlags.lastName, "last-name", "", "last name")
	registerCmd.Flags().StringVar(&registerFlags.phone, "phone", "", "phone number")
	registerCmd.Flags().StringVar(&registerFlags.role, "role", string(teachify.RoleTeacher), "requested role")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	password, err := readPassword(cmd)
	if err != nil {
		return err
	}
	a, err := openApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.client.Login(cmd.Context(), args[0], password); err != nil {
		return err
	}
	printSession(cmd.OutOrStdout(), a.client.Session())
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	password, err := readPassword(cmd)
	if err != nil {
		return err
	}
	a, err := openApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	err = a.client.Register(cmd.Context(), teachify.RegisterRequest{
		FirstName: registerFlags.firstName,
		LastName:  registerFlags.lastName,
		Username:  args[0],
		Phone:     registerFlags.phone,
		Role:      teachify.NormalizeRole(registerFlags.role),
		Password:  password,
	})
	if err != nil {
		return err
	}
	printSession(cmd.OutOrStdout(), a.client.Session())
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	a.client.Logout(cmd.Context())
	fmt.Fprintln(cmd.OutOrStdout(), "logged out")
	return nil
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	printSession(cmd.OutOrStdout(), a.client.Session())
	return nil
}

func readPassword(cmd *cobra.Command) (string, error) {
	password, _ := cmd.Flags().GetString("password")
	if password != "" {
		return password, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printSession(w io.Writer, s teachify.Session) {
	if !s.Authenticated() {
		fmt.Fprintln(w, s.Status)
		return
	}
	p := s.Profile
	fmt.Fprintf(w, "%s %s (%s) %s\n", p.FirstName, p.LastName, p.Username, p.Role)
}
