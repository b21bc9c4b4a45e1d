package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/hudmol/yale-accession-marc-export/config"
)

// SFTPUploader transfers export files to a remote directory over SFTP,
// authenticating with a password or a private key. The session is dialed
// lazily and redialed when it has gone away.
type SFTPUploader struct {
	cfg    config.SFTPConfig
	conn   *ssh.Client
	client *sftp.Client
}

func NewSFTPUploader(cfg config.SFTPConfig) *SFTPUploader {
	return &SFTPUploader{cfg: cfg}
}

func (u *SFTPUploader) Name() string {
	return fmt.Sprintf("sftp://%s@%s", u.cfg.Username, u.cfg.Host)
}

func (u *SFTPUploader) Upload(ctx context.Context, filename string, content io.Reader) error {
	if err := u.ensureSession(); err != nil {
		return &DeliveryError{Target: u.Name(), Err: err}
	}

	target := path.Join(u.cfg.TargetDirectory, filename)

	remote, err := u.client.Create(target)
	if err != nil {
		return &DeliveryError{Target: u.Name(), Err: err}
	}

	if _, err := io.Copy(remote, content); err != nil {
		remote.Close()
		u.client.Remove(target)
		return &DeliveryError{Target: u.Name(), Err: err}
	}

	if err := remote.Close(); err != nil {
		return &DeliveryError{Target: u.Name(), Err: err}
	}

	return nil
}

func (u *SFTPUploader) TestConnection(ctx context.Context) error {
	if err := u.ensureSession(); err != nil {
		return err
	}

	_, err := u.client.Getwd()
	return err
}

func (u *SFTPUploader) ensureSession() error {
	if u.client != nil {
		if _, err := u.client.Getwd(); err == nil {
			return nil
		}
		u.Close()
	}

	auth, err := u.authMethods()
	if err != nil {
		return err
	}

	sshCfg := &ssh.ClientConfig{
		User:            u.cfg.Username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	addr := fmt.Sprintf("%s:%d", u.cfg.Host, u.cfg.Port)
	conn, err := ssh.Dial("tcp", addr, sshCfg)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", addr, err)
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("starting sftp session: %w", err)
	}

	u.conn = conn
	u.client = client
	return nil
}

func (u *SFTPUploader) authMethods() ([]ssh.AuthMethod, error) {
	if u.cfg.PrivateKeyPath != "" {
		keyBytes, err := os.ReadFile(u.cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("reading private key: %w", err)
		}

		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("parsing private key: %w", err)
		}

		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}

	return []ssh.AuthMethod{ssh.Password(u.cfg.Password)}, nil
}

// Close tears down the SFTP session if one is open.
func (u *SFTPUploader) Close() {
	if u.client != nil {
		u.client.Close()
		u.client = nil
	}
	if u.conn != nil {
		u.conn.Close()
		u.conn = nil
	}
}
