package domain

import "errors"

var (
	// ErrKeyNotFound は指定されたテナント・世代の鍵が存在しない場合のエラー。
	ErrKeyNotFound = errors.New("key not found")

	// ErrKeyAlreadyExists は指定されたテナントに既に鍵が存在する場合のエラー。
	ErrKeyAlreadyExists = errors.New("key already exists")

	// ErrKeyDisabled は指定された鍵が無効化されている場合のエラー。
	ErrKeyDisabled = errors.New("key is disabled")

	// ErrKeyAlreadyDisabled は指定された鍵が既に無効化されている場合のエラー。
	ErrKeyAlreadyDisabled = errors.New("key is already disabled")

	// ErrInvalidTenantID はテナントIDの形式が不正な場合のエラー。
	ErrInvalidTenantID = errors.New("invalid tenant ID")

	// ErrInvalidGeneration は世代番号が不正な場合のエラー。
	ErrInvalidGeneration = errors.New("invalid generation")

	// ErrInvalidState は未知の保護方式が分岐処理に到達した場合のエラー。
	// 列挙値を追加して分岐を更新し忘れたことを示す。
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidArgument は序数・名前・有効期間などの値が範囲外の場合のエラー。
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrCorruptedRecord は永続化済みのレコードが解釈できない場合のエラー。
	ErrCorruptedRecord = errors.New("corrupted record")

	// ErrWrongVariant は保護方式に属さない値を読み出そうとした場合のエラー。
	ErrWrongVariant = errors.New("wrong protection variant")

	// ErrProtectionUnsupported は端末が保護方式を利用できない場合のエラー。
	ErrProtectionUnsupported = errors.New("protection not supported by device")

	// ErrDeviceNotFound は指定された端末が存在しない場合のエラー。
	ErrDeviceNotFound = errors.New("device not found")

	// ErrInvalidDevice は端末プロファイルの値が不正な場合のエラー。
	ErrInvalidDevice = errors.New("invalid device")

	// ErrPasswordRequired はパスワード保護の鍵にパスワードが指定されなかった場合のエラー。
	ErrPasswordRequired = errors.New("password required")

	// ErrPasswordMismatch はパスワードが一致しない場合のエラー。
	ErrPasswordMismatch = errors.New("password mismatch")

	// ErrMigrationFailed はマイグレーション実行時のエラー。
	ErrMigrationFailed = errors.New("migration failed")

	// ErrInvalidMigrationFile はマイグレーションファイルのフォーマットが不正な場合のエラー。
	ErrInvalidMigrationFile = errors.New("invalid migration file")
)
