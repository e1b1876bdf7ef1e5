package archive

import (
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/domain"
	"github.com/vaibhavipatil169-max/ir-ocv-recorder/internal/ports"
)

// MirroringWriter appends to the primary log writer and then mirrors the
// row into the archive. Primary failures propagate (fatal); mirror
// failures are logged and counted only.
type MirroringWriter struct {
	primary ports.LogWriter
	mirror  *PostgresArchive
	obs     ports.Observability
}

func NewMirroringWriter(primary ports.LogWriter, mirror *PostgresArchive, obs ports.Observability) *MirroringWriter {
	return &MirroringWriter{primary: primary, mirror: mirror, obs: obs}
}

func (w *MirroringWriter) Append(s domain.Sample) error {
	if err := w.primary.Append(s); err != nil {
		return err
	}
	if err := w.mirror.Insert(s); err != nil {
		w.obs.LogError("archive_insert_failed", err)
		w.obs.IncCounter("irocv_archive_errors_total", 1)
	}
	return nil
}

func (w *MirroringWriter) Close() error {
	err := w.primary.Close()
	if cerr := w.mirror.Close(); err == nil {
		err = cerr
	}
	return err
}

var _ ports.LogWriter = (*MirroringWriter)(nil)
