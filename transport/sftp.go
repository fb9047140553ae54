// Package transport fetches the weekly extract folder from the registry SFTP server.
package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/logger"
	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SftpConfig holds the connection details of the SFTP server.
type SftpConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	KnownHostsFile string
	RemotePath     string
	LocalPath      string
	Timeout        time.Duration
}

// RemoteFS is the subset of an SFTP client the downloader needs.
type RemoteFS interface {
	ReadDir(p string) ([]os.FileInfo, error)
	Open(p string) (io.ReadCloser, error)
}

// sftpFS adapts *sftp.Client to RemoteFS.
type sftpFS struct {
	c *sftp.Client
}

func (s sftpFS) ReadDir(p string) ([]os.FileInfo, error) {
	return s.c.ReadDir(p)
}

func (s sftpFS) Open(p string) (io.ReadCloser, error) {
	return s.c.Open(p)
}

// Session is an open SFTP connection.
type Session struct {
	FS   RemoteFS
	ssh  *ssh.Client
	sftp *sftp.Client
}

// Close closes the SFTP and SSH clients.
func (s *Session) Close() error {
	err := s.sftp.Close()
	if cerr := s.ssh.Close(); err == nil {
		err = cerr
	}
	return err
}

// Dial opens an SFTP session using password authentication.
// The server key must be listed in cfg.KnownHostsFile.
func Dial(ctx context.Context, log logger.Logger, cfg SftpConfig) (*Session, error) {
	hostKeys, err := knownhosts.New(cfg.KnownHostsFile)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading known hosts file %q", cfg.KnownHostsFile)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	log.Info("connecting to SFTP server ", addr, " as ", cfg.User)
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "error connecting to %v", addr)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
		HostKeyCallback: hostKeys,
		Timeout:         timeout,
	})
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "error during SSH handshake with %v", addr)
	}
	sshClient := ssh.NewClient(c, chans, reqs)
	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, errors.Wrap(err, "error starting SFTP subsystem")
	}
	log.Info("SFTP connection established")
	return &Session{FS: sftpFS{c: sftpClient}, ssh: sshClient, sftp: sftpClient}, nil
}

// LatestFolder returns the name of the most recently modified directory under root.
// The first directory wins a tie.
func LatestFolder(fs RemoteFS, root string) (string, error) {
	entries, err := fs.ReadDir(root)
	if err != nil {
		return "", errors.Wrapf(err, "error listing %q", root)
	}
	var latest os.FileInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if latest == nil || e.ModTime().After(latest.ModTime()) {
			latest = e
		}
	}
	if latest == nil {
		return "", fmt.Errorf("no folders found in %q", root)
	}
	return latest.Name(), nil
}

// Download copies the files of folder into localRoot/folder and returns the local directory.
// The registry nests the files one level down, i.e. <root>/<folder>/<folder>/.
func Download(ctx context.Context, log logger.Logger, fs RemoteFS, root string, folder string, localRoot string) (string, []string, error) {
	remoteDir := path.Join(root, folder, folder)
	localDir := filepath.Join(localRoot, folder)
	entries, err := fs.ReadDir(remoteDir)
	if err != nil {
		return "", nil, errors.Wrapf(err, "error listing %q", remoteDir)
	}
	if err = os.MkdirAll(localDir, 0755); err != nil {
		return "", nil, errors.Wrapf(err, "error creating %q", localDir)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err = ctx.Err(); err != nil {
			return "", nil, err
		}
		dst := filepath.Join(localDir, e.Name())
		n, err := copyFile(fs, path.Join(remoteDir, e.Name()), dst)
		if err != nil {
			return "", nil, err
		}
		log.Info("downloaded ", path.Join(remoteDir, e.Name()), " (", n, " bytes)")
		files = append(files, dst)
	}
	return localDir, files, nil
}

func copyFile(fs RemoteFS, src string, dst string) (int64, error) {
	r, err := fs.Open(src)
	if err != nil {
		return 0, errors.Wrapf(err, "error opening %q", src)
	}
	defer r.Close()
	w, err := os.Create(dst)
	if err != nil {
		return 0, errors.Wrapf(err, "error creating %q", dst)
	}
	n, err := io.Copy(w, r)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, errors.Wrapf(err, "error downloading %q", src)
	}
	return n, nil
}

// SftpFetcher dials the server, picks the latest folder and downloads it.
type SftpFetcher struct {
	Log logger.Logger
	Cfg SftpConfig
}

func (f *SftpFetcher) Fetch(ctx context.Context) (string, string, error) {
	s, err := Dial(ctx, f.Log, f.Cfg)
	if err != nil {
		return "", "", err
	}
	defer func() {
		if err := s.Close(); err != nil {
			f.Log.Warn("error closing SFTP session: ", err)
		}
	}()
	folder, err := LatestFolder(s.FS, f.Cfg.RemotePath)
	if err != nil {
		return "", "", err
	}
	f.Log.Info("latest folder = ", folder)
	dir, _, err := Download(ctx, f.Log, s.FS, f.Cfg.RemotePath, folder, f.Cfg.LocalPath)
	return folder, dir, err
}

// LocalFetcher returns a folder that is already on disk. The folder name is the directory's base name.
type LocalFetcher struct {
	Dir string
}

func (f *LocalFetcher) Fetch(ctx context.Context) (string, string, error) {
	fi, err := os.Stat(f.Dir)
	if err != nil {
		return "", "", errors.Wrapf(err, "error reading input directory")
	}
	if !fi.IsDir() {
		return "", "", fmt.Errorf("input %q is not a directory", f.Dir)
	}
	return filepath.Base(filepath.Clean(f.Dir)), f.Dir, nil
}
