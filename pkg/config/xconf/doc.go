// Package xconf 基于 koanf 的配置加载，支持 YAML/JSON 与文件热重载。
//
// 只提供增值功能（格式识别、错误归类、重载、监视），
// 基础读取操作直接使用 [Config.Client] 返回的 koanf 实例。
//
//	cfg, err := xconf.New("/etc/xtimer/xtimerctl.yaml")
//	if err != nil {
//	    return err
//	}
//	var app AppConfig
//	if err := cfg.Unmarshal("", &app); err != nil {
//	    return err
//	}
//
// 热重载：[Watch] 监视配置文件所在目录，变更事件经去抖后调用 Reload 并回调。
// 去抖由 xtimer.Registry 的 refresh 语义实现：连续事件只会刷新同一个一次性定时器。
package xconf
