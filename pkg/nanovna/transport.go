package nanovna

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/momentics/nanovna/internal/util"
)

// prompt - трехсимвольное приглашение прошивки, которым завершается
// любой текстовый ответ.
const prompt = "ch>"

// Transport реализует строчный протокол прошивки поверх последовательного
// порта: команды в ASCII с завершающим CR, ответы построчно до приглашения ch>.
// Transport владеет портом единолично; параллельный доступ сериализуется
// выше (см. VNA).
type Transport struct {
	dev    string
	opener func(string) (util.SerialPortInterface, error)
	port   util.SerialPortInterface
	reader *bufio.Reader
}

// NewTransport создает транспорт для порта по указанному пути.
// Соединение устанавливается первым вызовом Open.
func NewTransport(dev string) *Transport {
	return &Transport{
		dev: dev,
		opener: func(path string) (util.SerialPortInterface, error) {
			return util.OpenPort(path, util.DefaultMode())
		},
	}
}

// Open устанавливает соединение. Повторный вызов на открытом
// соединении не выполняет никаких действий.
func (t *Transport) Open() error {
	if t.port != nil {
		return nil
	}
	port, err := t.opener(t.dev)
	if err != nil {
		return fmt.Errorf("%w: открытие порта %s: %v", ErrTransport, t.dev, err)
	}
	t.port = port
	t.reader = bufio.NewReader(port)
	return nil
}

// Close закрывает соединение. Безопасен при уже закрытом соединении.
func (t *Transport) Close() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	t.reader = nil
	if err != nil {
		return fmt.Errorf("%w: закрытие порта: %v", ErrTransport, err)
	}
	return nil
}

// SendCommand отправляет ASCII-команду с завершающим CR и отбрасывает
// одну строку ответа - пустое эхо, которое выдает прошивка.
func (t *Transport) SendCommand(cmd string) error {
	if err := t.Open(); err != nil {
		return err
	}
	if _, err := t.port.Write([]byte(cmd + "\r")); err != nil {
		return fmt.Errorf("%w: запись команды %q: %v", ErrTransport, cmd, err)
	}
	if _, err := t.ReadLine(); err != nil {
		return err
	}
	return nil
}

// ReadLine читает одну строку ответа без символов \r и \n.
func (t *Transport) ReadLine() (string, error) {
	if t.reader == nil {
		return "", fmt.Errorf("%w: соединение не открыто", ErrTransport)
	}
	line, err := t.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("%w: чтение строки: %v", ErrTransport, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadUntilPrompt читает байты, игнорируя \r, накапливает строки и
// останавливается, когда строка оканчивается приглашением ch>.
// Возвращает конкатенацию всех предшествующих строк.
func (t *Transport) ReadUntilPrompt() (string, error) {
	if t.reader == nil {
		return "", fmt.Errorf("%w: соединение не открыто", ErrTransport)
	}
	var result, line strings.Builder
	for {
		b, err := t.reader.ReadByte()
		if err != nil {
			return "", fmt.Errorf("%w: чтение до приглашения: %v", ErrTransport, err)
		}
		if b == '\r' {
			continue
		}
		line.WriteByte(b)
		if b == '\n' {
			result.WriteString(line.String())
			line.Reset()
		}
		if strings.HasSuffix(line.String(), prompt) {
			break
		}
	}
	return result.String(), nil
}

// ReadFull читает ровно len(buf) байт сырых данных. Частичное чтение
// не восстанавливается и возвращается как ошибка.
func (t *Transport) ReadFull(buf []byte) error {
	if t.reader == nil {
		return fmt.Errorf("%w: соединение не открыто", ErrTransport)
	}
	if _, err := io.ReadFull(t.reader, buf); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return nil
}
