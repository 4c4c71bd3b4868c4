package common

import (
	"fmt"
	"sort"
	"sync"
)

// ServiceState 服务的状态
type ServiceState uint32

// 服务的生命周期: NEW -> INITED -> STARTING -> RUNNING -> STOPPING -> TERMINATED,
// 任一步骤失败进入FAILED
const (
	NEW ServiceState = iota
	INITED
	STARTING
	RUNNING
	STOPPING
	TERMINATED
	FAILED
)

var stateNames = [...]string{"NEW", "INITED", "STARTING", "RUNNING", "STOPPING", "TERMINATED", "FAILED"}

func (p ServiceState) String() string {
	if int(p) < len(stateNames) {
		return stateNames[p]
	}
	return fmt.Sprintf("ServiceState(%d)", uint32(p))
}

// next 正常流转的下一个状态,TERMINATED与FAILED是终态
var next = map[ServiceState]ServiceState{
	NEW:      INITED,
	INITED:   STARTING,
	STARTING: RUNNING,
	RUNNING:  STOPPING,
	STOPPING: TERMINATED,
}

func canTransit(from, to ServiceState) bool {
	if from == TERMINATED || from == FAILED {
		return false
	}
	return next[from] == to || to == FAILED
}

// Initable 需要初始化
type Initable interface {
	// Init 执行初始化操作,失败时返回原因
	Init() error
}

// Service 统一的服务接口,由BaseService提供状态管理
type Service interface {
	Initable
	Name() string
	Start() bool
	// GetStartOrder 越小越先启动,停止的次序与之相反
	GetStartOrder() int
	Stop() bool
	State() ServiceState
	setState(newState ServiceState) bool
}

// ServiceInit 初始化服务,已初始化的服务直接跳过
func ServiceInit(service Service) bool {
	if service.State() == INITED {
		Infof("%s has been inited,skip", ServiceName(service))
		return true
	}
	return transit(service, "init", INITED, func() error { return service.Init() })
}

// transit 执行fn并把服务推进到to状态,fn失败时服务进入FAILED
func transit(service Service, step string, to ServiceState, fn func() error) bool {
	err := fn()
	if err == nil && service.setState(to) {
		return true
	}
	state := service.State()
	Errorf("%s %s fail,state:%s,err:%v", step, ServiceName(service), state, err)
	if state != FAILED && state != TERMINATED {
		service.setState(FAILED)
	}
	return false
}

func boolStep(ok func() bool) func() error {
	return func() error {
		if !ok() {
			return fmt.Errorf("returned false")
		}
		return nil
	}
}

func serviceStart(service Service) bool {
	if !service.setState(STARTING) {
		return false
	}
	return transit(service, "start", RUNNING, boolStep(service.Start))
}

func serviceStop(service Service) bool {
	if !service.setState(STOPPING) {
		return false
	}
	return transit(service, "stop", TERMINATED, boolStep(service.Stop))
}

// BaseService 提供Service的状态管理,嵌入后覆盖Init/Start/Stop即可
type BaseService struct {
	SName     string //服务的名称
	Order     int    //启动次序
	state     ServiceState
	stateLock sync.RWMutex
}

// Name 服务名称
func (p *BaseService) Name() string {
	return p.SName
}

// Init 初始化
func (p *BaseService) Init() error {
	return nil
}

// Start 启动服务
func (p *BaseService) Start() bool {
	return true
}

// GetStartOrder 启动次序
func (p *BaseService) GetStartOrder() int {
	return p.Order
}

// Stop 停止服务
func (p *BaseService) Stop() bool {
	return true
}

// State 服务的状态
func (p *BaseService) State() ServiceState {
	p.stateLock.RLock()
	defer p.stateLock.RUnlock()
	return p.state
}

func (p *BaseService) setState(newState ServiceState) bool {
	p.stateLock.Lock()
	defer p.stateLock.Unlock()
	if canTransit(p.state, newState) {
		p.state = newState
		return true
	}
	Criticalf("invalid state transfer %s->%s,%s", p.state, newState, p.SName)
	return false
}

// ServiceName 服务的类型与名称,用于日志
func ServiceName(service Service) string {
	name := fmt.Sprintf("%T", service)
	if service.Name() != "" {
		name += "#" + service.Name()
	}
	return name
}

// Services 按启动次序排好的一组服务
type Services struct {
	sorted []Service
}

// NewServices 构建服务集合,相同次序的保持传入的先后
func NewServices(services ...Service) *Services {
	sorted := make([]Service, len(services))
	copy(sorted, services)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].GetStartOrder() < sorted[j].GetStartOrder()
	})
	return &Services{sorted: sorted}
}

// Init 按启动次序初始化
func (p *Services) Init() bool {
	for _, service := range p.sorted {
		if !ServiceInit(service) {
			return false
		}
	}
	return true
}

// Start 按启动次序启动,某个服务启动失败时停止已经启动的服务
func (p *Services) Start() bool {
	for _, service := range p.sorted {
		if !serviceStart(service) {
			p.Stop()
			return false
		}
	}
	return true
}

// Stop 逆序停止运行中的服务,单个服务停止失败不影响其他服务
func (p *Services) Stop() bool {
	ok := true
	for i := len(p.sorted) - 1; i >= 0; i-- {
		service := p.sorted[i]
		if service.State() != RUNNING {
			continue
		}
		if !serviceStop(service) {
			ok = false
		}
	}
	return ok
}
